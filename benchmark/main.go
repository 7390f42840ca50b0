// Package main benchmarks the grimoire CLI against existing activity databases.
// It runs every report shape several times per database, treating the first
// successful run as cold and averaging the rest as warm, and writes the timings
// to a CSV file.
//
// Prerequisites:
// - grimoire binary installed and available in PATH
// - one or more sqlite activity databases (e.g. cvsanaly dumps converted to sqlite)
//
// Usage: go run benchmark/main.go db1.db [db2.db ...]
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BenchmarkResult holds the cold run and the average of the warm runs of one case.
type BenchmarkResult struct {
	Database string
	Case     string
	ColdTime string
	WarmTime string
}

// BenchmarkCase is one grimoire invocation.
type BenchmarkCase struct {
	Name string
	Args []string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Databases []string
	Timeout   time.Duration
	Runs      int
	Cases     []BenchmarkCase
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s db1.db [db2.db ...]\n", os.Args[0])
		os.Exit(1)
	}

	scope := []string{"--start", "3 years ago", "--output", "json"}
	config := BenchmarkConfig{
		Databases: os.Args[1:],
		Timeout:   5 * time.Minute,
		Runs:      4,
		Cases: []BenchmarkCase{
			{Name: "agg", Args: append([]string{"agg"}, scope...)},
			{Name: "ts-week", Args: append([]string{"ts", "--period", "week"}, scope...)},
			{Name: "ts-month", Args: append([]string{"ts", "--period", "month"}, scope...)},
			{Name: "top", Args: append([]string{"top", "--limit", "50"}, scope...)},
			{Name: "list", Args: append([]string{"list", "--metrics", "repositories,companies"}, scope...)},
			{Name: "trends", Args: append([]string{"trends", "--days", "90"}, scope...)},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the grimoire binary and the databases exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("grimoire"); err != nil {
		return fmt.Errorf("grimoire binary not found in PATH")
	}
	for _, db := range config.Databases {
		if _, err := os.Stat(db); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s", db)
		}
	}
	return nil
}

// runBenchmarks executes every case against every database
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d databases, %d cases, %v timeout, %d runs\n",
		len(config.Databases), len(config.Cases), config.Timeout, config.Runs)

	for _, db := range config.Databases {
		name := filepath.Base(db)
		fmt.Printf("Benchmarking %s\n", name)
		for _, c := range config.Cases {
			results = append(results, runBenchmarkCase(config, db, c))
		}
	}
	return results
}

// runBenchmarkCase runs one case several times and summarizes the timings
func runBenchmarkCase(config BenchmarkConfig, db string, c BenchmarkCase) BenchmarkResult {
	fmt.Printf("  %s (%d runs)\n", c.Name, config.Runs)
	cold, warm := runBenchmark(config, db, c.Args)

	coldTime := "TIMEOUT"
	if cold > 0 {
		coldTime = fmt.Sprintf("%.3fs", cold)
	}
	warmTime := "TIMEOUT"
	if len(warm) > 0 {
		var sum float64
		for _, t := range warm {
			sum += t
		}
		warmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
	}
	fmt.Printf("    Cold: %s, Warm average: %s\n", coldTime, warmTime)

	return BenchmarkResult{Database: filepath.Base(db), Case: c.Name, ColdTime: coldTime, WarmTime: warmTime}
}

// runBenchmark executes a grimoire command and returns the cold time and the warm times
func runBenchmark(config BenchmarkConfig, db string, args []string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for range config.Runs {
		start := time.Now()

		cmd := exec.Command("grimoire", args...)
		cmd.Env = append(os.Environ(), "GRIMOIRE_BACKEND=sqlite", "GRIMOIRE_DB_CONNECT="+db)

		done := make(chan error, 1)
		go func() {
			done <- cmd.Run()
		}()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/grimoire_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"database", "case", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Database, result.Case, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results grouped by case
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Case] {
			continue
		}
		seen[r.Case] = true
		fmt.Printf("%s:\n", r.Case)
		for _, other := range results {
			if other.Case == r.Case {
				fmt.Printf("  %-20s: Cold: %s, Warm: %s\n", other.Database, other.ColdTime, other.WarmTime)
			}
		}
	}
}
