package tui

import (
	"fmt"
	"strings"
)

// handsetArt draws the payphone with the handset lifted proportionally to
// progress in [0,1]. Frame 1 is on-hook, the last frame is at the ear.
func handsetArt(progress float64) string {
	body := []string{
		".=========.",
		"|  PHONE  |",
		"| [1][2][3]",
		"| [4][5][6]",
		"| [7][8][9]",
		"| [*][0][#]",
		"|         |",
		"'========='",
	}
	lift := int(progress * 5) // rows of lift, 0 = resting on the cradle
	row := 6 - lift
	if row < 0 {
		row = 0
	}
	var b strings.Builder
	for i, line := range body {
		b.WriteString(line)
		if i == row {
			b.WriteString("  (==)")
		}
		if i < len(body)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// bookArt draws the address book opening: the page spread widens with
// progress, and the entry count appears on the last third.
func bookArt(progress float64, entries int) string {
	spread := int(progress * 8)
	if spread > 8 {
		spread = 8
	}
	var b strings.Builder
	b.WriteString(" ___________\n")
	for i := 0; i < 4; i++ {
		left := strings.Repeat("_", spread)
		right := strings.Repeat("_", 8-spread)
		fmt.Fprintf(&b, "/%s|%s\\\n", left, right)
	}
	b.WriteString("\\___________/")
	if progress > 0.66 && entries > 0 {
		fmt.Fprintf(&b, "\n %d entries", entries)
	}
	return b.String()
}
