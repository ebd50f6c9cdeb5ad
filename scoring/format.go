package scoring

import (
	"fmt"
	"strconv"
)

// Round rounds x to the given number of decimal digits, ties to even on
// the exact binary value.
func Round(x float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	res, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', precision, 64), 64)
	if err != nil {
		// FormatFloat output always parses
		panic(err)
	}
	return res
}

// FormatCompact formats like C's %g: six significant digits, no
// trailing zeros, locale independent.
func FormatCompact(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func rankingDetail(subtaskScore float64) string {
	return FormatCompact(Round(subtaskScore, 2))
}

func subtaskHeader(idx int, maxScore float64) string {
	return fmt.Sprintf("Subtask %d (%s)", idx, FormatCompact(maxScore))
}
