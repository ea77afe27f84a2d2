package gamedto

import "strings"

// Color is a side of the board as the server spells it.
type Color string

const (
	White Color = "WHITE"
	Black Color = "BLACK"
)

// ParseColor normalizes a wire color. Unknown input yields "".
func ParseColor(s string) Color {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE", "W":
		return White
	case "BLACK", "B":
		return Black
	}
	return ""
}

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return ""
}

func (c Color) Valid() bool { return c == White || c == Black }
