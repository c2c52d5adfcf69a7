package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/John-Robertt/streamscout/internal/domain"
)

// 卡片：内容 3 行（标题、日期、provider），外加上下边框。
const (
	cardContentWidth = 22
	cardOuterWidth   = cardContentWidth + 4
	cardHeight       = 5
)

func cardProviders(ps []domain.TopProvider) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func (m *Model) cardView(i int) string {
	item := m.report.Items[i]
	date := item.Date()
	if date == "" {
		date = "—"
	}
	content := strings.Join([]string{
		cardTitleStyle.Render(ansi.Truncate(item.DisplayTitle(), cardContentWidth, "…")),
		cardDateStyle.Render(date),
		cardProviderStyle.Render(ansi.Truncate(cardProviders(item.TopProviders), cardContentWidth, "…")),
	}, "\n")

	style := cardStyle
	if m.focus == focusGrid && i == m.selected {
		style = cardSelectedStyle
	}
	return style.Width(cardContentWidth + 2).Render(content)
}

func (m *Model) gridView() []string {
	items := m.report.Items
	if len(items) == 0 {
		if m.loading {
			return nil
		}
		return []string{emptyStateStyle.Render("No results found.")}
	}

	cols := m.lay.cols
	var out []string
	for r := 0; r < m.lay.rows; r++ {
		first := (m.gridOffset + r) * cols
		if first >= len(items) {
			break
		}
		cards := make([]string, 0, cols*2)
		for c := 0; c < cols && first+c < len(items); c++ {
			if c > 0 {
				cards = append(cards, " ")
			}
			cards = append(cards, m.cardView(first+c))
		}
		out = append(out, strings.Split(lipgloss.JoinHorizontal(lipgloss.Top, cards...), "\n")...)
	}
	return out
}

// cardAt 把屏幕坐标映射为结果下标。
func (m *Model) cardAt(x, y int) (int, bool) {
	g := m.lay.grid
	if !g.contains(x, y) || len(m.report.Items) == 0 {
		return 0, false
	}
	if x%(cardOuterWidth+1) == cardOuterWidth {
		return 0, false
	}
	r := (y - g.y) / cardHeight
	c := x / (cardOuterWidth + 1)
	if r >= m.lay.rows || c >= m.lay.cols {
		return 0, false
	}
	i := (m.gridOffset+r)*m.lay.cols + c
	if i >= len(m.report.Items) {
		return 0, false
	}
	return i, true
}

func (m *Model) gridRowCount() int {
	cols := m.lay.cols
	return (len(m.report.Items) + cols - 1) / cols
}

func (m *Model) scrollGrid(delta int) {
	maxOffset := max(0, m.gridRowCount()-m.lay.rows)
	m.gridOffset = min(max(m.gridOffset+delta, 0), maxOffset)
}

func (m *Model) ensureGridVisible() {
	if m.lay.cols == 0 {
		return
	}
	if n := len(m.report.Items); m.selected >= n {
		m.selected = max(n-1, 0)
	}
	row := m.selected / m.lay.cols
	if row < m.gridOffset {
		m.gridOffset = row
	}
	if row >= m.gridOffset+m.lay.rows {
		m.gridOffset = row - m.lay.rows + 1
	}
	m.scrollGrid(0)
}

func (m *Model) handleGridKey(key string) tea.Cmd {
	n := len(m.report.Items)
	if n == 0 {
		return nil
	}
	next := m.selected
	switch key {
	case "left", "h":
		next--
	case "right", "l":
		next++
	case "up", "k":
		next -= m.lay.cols
	case "down", "j":
		next += m.lay.cols
	case "enter":
		m.openModal()
		return nil
	}
	if next >= 0 && next < n {
		m.selected = next
	}
	return nil
}
