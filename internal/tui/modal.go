package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/John-Robertt/streamscout/internal/app/details"
	"github.com/John-Robertt/streamscout/internal/domain"
)

const (
	serviceWidth   = 24
	countryWidth   = 20
	modalMinWidth  = 50
	modalMaxWidth  = 76
	modalChrome    = 8 // 边框 2 + 标题、过滤、空行、表头、空行、帮助
	filterLabel    = "Filter provider: "
	noProviderHint = "No providers"
)

// modalState 是详情弹窗：某个条目按国家展开的 provider 表格。
// 数据直接来自搜索时已经补充好的 Providers，不再发请求。
type modalState struct {
	item    domain.SearchResult
	view    domain.DetailsView
	service Dropdown
	vp      viewport.Model
}

func newModal(item domain.SearchResult) *modalState {
	view := details.Build(item.Key(), item.DisplayTitle(), item.Providers, "")
	s := &modalState{
		item:    item,
		view:    view,
		service: NewDropdown(idService, allProvidersLabel, serviceWidth, providerOptions(view.Options), ""),
		vp:      viewport.New(0, 0),
	}
	s.service.Focus()
	return s
}

func (s *modalState) setService(v string) {
	s.view = details.Build(s.item.Key(), s.item.DisplayTitle(), s.item.Providers, v)
	s.vp.GotoTop()
}

func (s *modalState) hasOptions() bool { return len(s.view.Options) > 0 }

func serviceLabel(svc domain.Service) string {
	if svc.Kind == domain.OfferFlatrate {
		return svc.Name
	}
	return svc.Name + " (" + string(svc.Kind) + ")"
}

func (s *modalState) tableLines(width int) []string {
	if len(s.view.Rows) == 0 {
		return []string{emptyStateStyle.Render("No provider info found.")}
	}
	rest := max(width-countryWidth-1, 1)
	lines := make([]string, 0, len(s.view.Rows))
	for _, r := range s.view.Rows {
		names := make([]string, 0, len(r.Services))
		for _, svc := range r.Services {
			names = append(names, serviceLabel(svc))
		}
		country := countryStyle.Render(padRight(ansi.Truncate(r.CountryName, countryWidth, "…"), countryWidth))
		lines = append(lines, country+" "+ansi.Truncate(strings.Join(names, ", "), rest, "…"))
	}
	return lines
}

// relayout 居中放置弹窗并返回其区域。
func (s *modalState) relayout(screenW, screenH int) rect {
	w := min(max(screenW-4, modalMinWidth), modalMaxWidth)
	cw := w - 6

	lines := s.tableLines(cw)
	vh := min(len(lines), max(1, screenH-modalChrome-2))
	s.vp.Width, s.vp.Height = cw, vh
	s.vp.SetContent(strings.Join(lines, "\n"))

	h := vh + modalChrome
	x := max(0, (screenW-w)/2)
	y := max(0, (screenH-h)/2)
	// 内容区从边框 1 + 左内边距 2 开始；过滤控件在第二行。
	s.service.SetPosition(x+3+ansi.StringWidth(filterLabel), y+2)
	s.service.SetScreen(screenW, screenH)
	return rect{x, y, w, h}
}

func (m *Model) openModal() {
	if m.selected < 0 || m.selected >= len(m.report.Items) {
		return
	}
	for _, dd := range m.dropdowns() {
		dd.Close()
	}
	m.modal = newModal(m.report.Items[m.selected])
}

func (m *Model) closeModal() {
	m.modal = nil
}

func (m *Model) handleModalKey(msg tea.KeyMsg) tea.Cmd {
	s := m.modal
	var cmd tea.Cmd
	if s.service.IsOpen() {
		s.service, cmd = s.service.Update(msg)
		return cmd
	}
	switch msg.String() {
	case "esc", "q":
		m.closeModal()
		return nil
	case "pgdown":
		s.vp.ViewDown()
		return nil
	case "pgup":
		s.vp.ViewUp()
		return nil
	}
	if s.hasOptions() {
		s.service, cmd = s.service.Update(msg)
	}
	return cmd
}

func (m *Model) handleModalMouse(msg tea.MouseMsg) tea.Cmd {
	s := m.modal
	var cmd tea.Cmd
	if s.service.InMenu(msg.X, msg.Y) {
		s.service, cmd = s.service.Update(msg)
		return cmd
	}

	wasOpen := s.service.IsOpen()
	if s.hasOptions() {
		s.service, cmd = s.service.Update(msg)
	}
	inside := m.lay.modal.contains(msg.X, msg.Y)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && !inside && !wasOpen:
		m.closeModal()
	case msg.Button == tea.MouseButtonWheelDown && inside:
		s.vp.LineDown(1)
	case msg.Button == tea.MouseButtonWheelUp && inside:
		s.vp.LineUp(1)
	}
	return cmd
}

func (m *Model) modalView() string {
	s := m.modal
	cw := m.lay.modal.w - 6

	filter := emptyStateStyle.Render(noProviderHint)
	if s.hasOptions() {
		filter = s.service.View()
	}
	title := s.view.Title
	if title == "" {
		title = "Details"
	}
	lines := []string{
		modalTitleStyle.Render(ansi.Truncate(title, cw, "…")),
		labelStyle.Render(filterLabel) + filter,
		"",
		subtitleStyle.Render(padRight("Country", countryWidth) + " Providers"),
		s.vp.View(),
		"",
		helpStyle.Render("esc close"),
	}
	return modalStyle.Width(m.lay.modal.w - 2).Render(strings.Join(lines, "\n"))
}
