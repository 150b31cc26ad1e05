package view

import "testing"

func TestRowStyleFreshTierUsesBaseColor(t *testing.T) {
	bg, fg, ok := RowStyle(StatusFilled, 0, 12)
	if !ok {
		t.Fatal("expected a style for a fresh filled row")
	}
	if bg != "#00ff00" {
		t.Errorf("bg = %s, want #00ff00", bg)
	}
	if fg != "#000000" {
		t.Errorf("fg = %s, want black text on bright green", fg)
	}
}

func TestRowStyleTerminalFailuresShareRed(t *testing.T) {
	for _, status := range []string{StatusPartiallyCanceled, StatusCanceled, StatusRejected, StatusExpired} {
		bg, _, ok := RowStyle(status, 0, 12)
		if !ok {
			t.Fatalf("expected a style for fresh %s row", status)
		}
		if bg != "#ff5555" {
			t.Errorf("%s bg = %s, want #ff5555", status, bg)
		}
	}
}

func TestRowStyleLastTierIsBlack(t *testing.T) {
	bg, fg, ok := RowStyle(StatusNew, 11, 12)
	if !ok {
		t.Fatal("expected a style for the last tier")
	}
	if bg != "#000000" {
		t.Errorf("bg = %s, want #000000", bg)
	}
	if fg != "#ffffff" {
		t.Errorf("fg = %s, want white text on black", fg)
	}
}

func TestRowStylePastLastTierHasNoStyle(t *testing.T) {
	if _, _, ok := RowStyle(StatusFilled, 12, 12); ok {
		t.Error("tier at levels must yield no style")
	}
	if _, _, ok := RowStyle(StatusFilled, 500, 12); ok {
		t.Error("tier far past levels must yield no style")
	}
}

func TestRowStyleUnknownStatus(t *testing.T) {
	if _, _, ok := RowStyle("teleported", 0, 12); ok {
		t.Error("unknown status must yield no style")
	}
}

func TestRowStyleDarkensMonotonically(t *testing.T) {
	levels := 8
	prev := 256 * 3
	for tier := 0; tier < levels; tier++ {
		bg, _, ok := RowStyle(StatusPartiallyFilled, tier, levels)
		if !ok {
			t.Fatalf("no style at tier %d", tier)
		}
		r, g, b, ok := parseHex(bg)
		if !ok {
			t.Fatalf("unparseable color %q at tier %d", bg, tier)
		}
		sum := r + g + b
		if sum > prev {
			t.Fatalf("brightness increased at tier %d: %d > %d", tier, sum, prev)
		}
		prev = sum
	}
}

func TestContrastTextColor(t *testing.T) {
	tests := []struct {
		bg   string
		want string
	}{
		{"#ffffff", "#000000"},
		{"#000000", "#ffffff"},
		{"#00ff00", "#000000"}, // bright green reads best with black
		{"#112233", "#ffffff"},
	}
	for _, tt := range tests {
		if got := ContrastTextColor(tt.bg); got != tt.want {
			t.Errorf("ContrastTextColor(%s) = %s, want %s", tt.bg, got, tt.want)
		}
	}
}

func TestInterpToBlackEndpoints(t *testing.T) {
	if got := interpToBlack("#80ff40", 0); got != "#80ff40" {
		t.Errorf("t=0 should return the base color, got %s", got)
	}
	if got := interpToBlack("#80ff40", 1); got != "#000000" {
		t.Errorf("t=1 should return black, got %s", got)
	}
}
