package outwriter

import (
	"os"

	"github.com/huangsam/grimoire/internal/contract"
	"golang.org/x/term"
)

// getMaxTableLabelWidth calculates the maximum width of entity names in table
// output based on terminal width and the number of numeric columns.
func getMaxTableLabelWidth(cfg *contract.Config, numericColumns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank column plus borders and padding
	baseWidth := 12 + 14*numericColumns

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}
