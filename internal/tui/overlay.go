package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// PlaceOverlay 把 fg 逐行覆盖到 bg 的 (x, y) 处，两者都可以带 ANSI 样式。
// bg 行数不足时补空行，行宽不足时补空格。
func PlaceOverlay(x, y int, fg, bg string) string {
	if fg == "" {
		return bg
	}
	x, y = max(x, 0), max(y, 0)

	bgLines := strings.Split(bg, "\n")
	fgLines := strings.Split(fg, "\n")
	for len(bgLines) < y+len(fgLines) {
		bgLines = append(bgLines, "")
	}

	for i, fl := range fgLines {
		row := y + i
		bl := bgLines[row]

		left := ansi.Truncate(bl, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ""
		if end := x + ansi.StringWidth(fl); ansi.StringWidth(bl) > end {
			right = ansi.TruncateLeft(bl, end, "")
		}
		bgLines[row] = left + ansi.ResetStyle + fl + ansi.ResetStyle + right
	}
	return strings.Join(bgLines, "\n")
}
