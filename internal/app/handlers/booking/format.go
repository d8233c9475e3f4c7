package booking

import "strconv"

func formatRate(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}
