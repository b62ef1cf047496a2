package badge

import (
	"math"
	"strconv"
)

const (
	ColorUp   = "#38a169"
	ColorDown = "#e53e3e"

	errorText = "!"
)

// Badge is the short text and background color shown for the pinned coin.
// An empty Text means the badge is cleared.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// IsCleared reports whether the badge shows nothing
func (b Badge) IsCleared() bool {
	return b.Text == ""
}

// Error is the badge shown when the price could not be fetched
func Error() Badge {
	return Badge{Text: errorText, Color: ColorDown}
}

// Format renders a price for the badge. Prices from 1000 up are shown in
// thousands with one decimal, prices from 1 up are truncated to an integer
// and smaller prices keep two decimals. Halves round away from zero.
// A non-negative 24h change is green.
func Format(price, change24h float64) Badge {
	color := ColorUp
	if change24h < 0 {
		color = ColorDown
	}
	return Badge{Text: formatPrice(price), Color: color}
}

func formatPrice(price float64) string {
	switch {
	case price >= 1000:
		return strconv.FormatFloat(math.Round(price/100)/10, 'f', 1, 64) + "k"
	case price >= 1:
		return strconv.FormatFloat(math.Floor(price), 'f', 0, 64)
	default:
		return strconv.FormatFloat(math.Round(price*100)/100, 'f', 2, 64)
	}
}
