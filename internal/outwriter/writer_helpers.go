package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// formatter renders normalized values as text.
type formatter struct {
	precision int
	human     bool // thousands separators for tables
}

// Value renders one cell. Missing ratios become "NaN" in machine formats and
// "-" in tables.
func (f formatter) Value(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		if f.human {
			return humanize.Comma(t)
		}
		return strconv.FormatInt(t, 10)
	case float64:
		if math.IsNaN(t) {
			if f.human {
				return "-"
			}
			return "NaN"
		}
		if f.human {
			return humanize.CommafWithDigits(t, f.precision)
		}
		return strconv.FormatFloat(t, 'f', f.precision, 64)
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.DateTime)
	default:
		return fmt.Sprint(t)
	}
}
