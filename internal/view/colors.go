package view

import "fmt"

// Freshest background color per order status. Rows darken toward black as
// their staleness tier grows.
var statusBaseColor = map[string]string{
	StatusNew:               "#aa55ff", // purple
	StatusPartiallyFilled:   "#11aaff", // blue
	StatusFilled:            "#00ff00", // green
	StatusPartiallyCanceled: "#ff5555", // red, like the other terminal failures
	StatusCanceled:          "#ff5555",
	StatusRejected:          "#ff5555",
	StatusExpired:           "#ff5555",
}

// interpToBlack darkens a #rrggbb color toward black by fraction t in [0,1].
func interpToBlack(hex string, t float64) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return hex
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	fade := func(c int) int { return int(float64(c)*(1-t) + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x", fade(r), fade(g), fade(b))
}

// ContrastTextColor picks black or white text for the given background,
// using the YIQ brightness equation.
func ContrastTextColor(bgHex string) string {
	r, g, b, ok := parseHex(bgHex)
	if !ok {
		return "#000000"
	}
	yiq := (r*299 + g*587 + b*114) / 1000
	if yiq >= 128 {
		return "#000000"
	}
	return "#ffffff"
}

func parseHex(hex string) (r, g, b int, ok bool) {
	if len(hex) == 4 { // #rgb
		var r1, g1, b1 int
		if _, err := fmt.Sscanf(hex, "#%1x%1x%1x", &r1, &g1, &b1); err != nil {
			return 0, 0, 0, false
		}
		return r1 * 17, g1 * 17, b1 * 17, true
	}
	if len(hex) != 7 {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

// RowStyle returns background and text colors for an order row given its
// staleness tier. Tier 0 is the full status color, tier levels-1 is solid
// black, tiers at or past levels get no styling at all (the row is too old
// to highlight).
func RowStyle(status string, tier, levels int) (bg, fg string, ok bool) {
	if levels < 2 || tier < 0 || tier >= levels {
		return "", "", false
	}
	base, known := statusBaseColor[status]
	if !known {
		return "", "", false
	}

	if tier == levels-1 {
		bg = "#000000"
	} else {
		bg = interpToBlack(base, float64(tier)/float64(levels-1))
	}
	return bg, ContrastTextColor(bg), true
}
