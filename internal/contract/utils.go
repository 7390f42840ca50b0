package contract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Color variables for console output.
var (
	HeaderColor = color.New(color.FgCyan, color.Bold) // HeaderColor marks report titles.
	MutedColor  = color.New(color.FgHiBlack)          // MutedColor marks zero-filled buckets.
	WarnColor   = color.New(color.FgYellow)           // WarnColor marks non-fatal notices.
	FatalColor  = color.New(color.FgRed, color.Bold)  // FatalColor marks fatal errors.
)

// SelectOutputFile returns the file handle for output, or os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", FatalColor.Sprint("Fatal"), msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", WarnColor.Sprint("Warn"), msg, err)
}

// TruncateText truncates s to maxWidth runes with an ellipsis suffix.
// maxWidth must exceed 3 to leave room for the ellipsis and one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// SplitList splits a comma separated value, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
