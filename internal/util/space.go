package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight pads or truncates a string to a fixed display width, so file
// names with wide runes still line up in columns.
func PadRight(str string, width int) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}
