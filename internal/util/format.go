package util

import (
	"fmt"
	"strconv"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with a binary unit and at most one
// decimal, e.g. 1536 -> "1.5 KB".
func FormatSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	value := float64(size)
	exp := 0
	for value >= unit && exp < len(sizeUnits)-1 {
		value /= unit
		exp++
	}
	return strconv.FormatFloat(roundTenth(value), 'f', -1, 64) + " " + sizeUnits[exp]
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// Percent returns done/total as a fraction in [0,1]. A zero total yields 0.
func Percent(done, total uint64) float64 {
	if total == 0 {
		return 0
	}
	if done >= total {
		return 1
	}
	return float64(done) / float64(total)
}
