// Package tui 是 StreamScout 的终端界面：搜索行、高级过滤、结果网格与详情弹窗。
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/domain"
)

// 下拉框 id
const (
	idType     = "type"
	idProvider = "provider"
	idSort     = "sort"
	idOrder    = "order"
	idService  = "service"
)

const (
	allProvidersLabel = "All providers"
	queryCharLimit    = 100
)

type focusTarget int

const (
	focusType focusTarget = iota
	focusQuery
	focusSearch
	focusProvider
	focusAdvanced
	focusSort
	focusOrder
	focusMinDate
	focusMaxDate
	focusMinRating
	focusReset
	focusGrid
	focusCount
)

// searchDoneMsg 携带发起时的序号；序号不是最新的响应直接丢弃。
type searchDoneMsg struct {
	seq    int
	report domain.SearchReport
	err    error
}

// Model 是整个界面的状态；只在 bubbletea 的 Update 循环中修改。
type Model struct {
	deps search.Deps

	width, height int

	typeDD     Dropdown
	providerDD Dropdown
	sortDD     Dropdown
	orderDD    Dropdown

	query     textinput.Model
	minDate   textinput.Model
	maxDate   textinput.Model
	minRating textinput.Model
	spinner   spinner.Model

	focus        focusTarget
	advancedOpen bool

	seq       int
	loading   bool
	err       string
	report    domain.SearchReport
	hasReport bool

	selected   int
	gridOffset int

	modal *modalState
	lay   layout
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
	return ti
}

// New 创建界面模型；搜索通过 deps 执行。
func New(deps search.Deps) *Model {
	m := &Model{
		deps: deps,
		typeDD: NewDropdown(idType, "Type", typeWidth, []Option{
			{Value: string(domain.SelectMovie), Label: "Movies"},
			{Value: string(domain.SelectSeries), Label: "TV Shows"},
			{Value: string(domain.SelectAll), Label: "All"},
		}, string(domain.SelectMovie)),
		providerDD: NewDropdown(idProvider, "Provider", providerWidth, nil, ""),
		sortDD: NewDropdown(idSort, "Sort by", sortWidth, []Option{
			{Value: string(domain.SortReleaseDate), Label: "Release Date"},
			{Value: string(domain.SortVoteAverage), Label: "Rating"},
		}, string(domain.SortReleaseDate)),
		orderDD: NewDropdown(idOrder, "Order", orderWidth, []Option{
			{Value: string(domain.OrderDesc), Label: "Descending"},
			{Value: string(domain.OrderAsc), Label: "Ascending"},
		}, string(domain.OrderDesc)),
		query:     newInput("Search for a title...", queryCharLimit),
		minDate:   newInput("YYYY-MM-DD", 10),
		maxDate:   newInput("YYYY-MM-DD", 10),
		minRating: newInput("0", 4),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))),
		),
	}
	m.setFocus(focusQuery)
	m.relayout()
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) dropdowns() []*Dropdown {
	return []*Dropdown{&m.typeDD, &m.providerDD, &m.sortDD, &m.orderDD}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.relayout()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return nil

	case OpenedMsg:
		for _, dd := range m.dropdowns() {
			*dd, _ = dd.Update(msg)
		}
		if m.modal != nil {
			m.modal.service, _ = m.modal.service.Update(msg)
		}
		return nil

	case ChangedMsg:
		return m.handleChanged(msg)

	case searchDoneMsg:
		m.handleSearchDone(msg)
		return nil

	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return tea.Quit
		}
		if m.modal != nil {
			return m.handleModalKey(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.modal != nil {
			return m.handleModalMouse(msg)
		}
		return m.handleMouse(msg)
	}

	// 其余消息（光标闪烁等）交给获得焦点的输入框。
	if in := m.focusedInput(); in != nil {
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleChanged(msg ChangedMsg) tea.Cmd {
	switch msg.ID {
	case idProvider:
		if m.hasReport {
			m.report = search.Refilter(m.report, msg.Value)
			m.selected, m.gridOffset = 0, 0
		}
	case idService:
		if m.modal != nil {
			m.modal.setService(msg.Value)
		}
	}
	return nil
}

func (m *Model) handleSearchDone(msg searchDoneMsg) {
	if msg.seq != m.seq {
		return
	}
	m.loading = false
	if msg.err != nil {
		m.err = userMessage(msg.err)
		return
	}
	m.report = msg.report
	m.hasReport = true
	m.providerDD.SetOptions(providerOptions(msg.report.Providers))
	m.providerDD.SetValue(msg.report.Filter.Provider)
}

func providerOptions(ps []domain.ProviderOption) []Option {
	if len(ps) == 0 {
		return nil
	}
	opts := make([]Option, 0, len(ps)+1)
	opts = append(opts, Option{Value: "", Label: allProvidersLabel})
	for _, p := range ps {
		opts = append(opts, Option{Value: p.Value, Label: p.Label, Logo: p.Logo})
	}
	return opts
}

func userMessage(err error) string {
	if errors.Is(err, search.ErrInvalidRequest) {
		return err.Error()
	}
	return search.GenericMessage
}

func (m *Model) filterState() (domain.FilterState, error) {
	rating, err := domain.ParseRating(m.minRating.Value())
	if err != nil {
		return domain.FilterState{}, err
	}
	f := domain.FilterState{
		MinDate:   m.minDate.Value(),
		MaxDate:   m.maxDate.Value(),
		MinRating: rating,
		SortBy:    domain.SortKey(m.sortDD.Value()),
		Order:     domain.SortOrder(m.orderDD.Value()),
	}
	return f.Validate()
}

// startSearch 空查询什么也不做；否则清空上一轮结果与 provider 过滤，异步执行搜索。
func (m *Model) startSearch() tea.Cmd {
	q := strings.TrimSpace(m.query.Value())
	if q == "" {
		return nil
	}
	f, err := m.filterState()
	if err != nil {
		m.err = err.Error()
		return nil
	}
	sel, err := domain.ParseSelection(m.typeDD.Value())
	if err != nil {
		m.err = err.Error()
		return nil
	}

	m.seq++
	m.loading = true
	m.err = ""
	m.report = domain.SearchReport{}
	m.hasReport = false
	m.providerDD.SetOptions(nil)
	m.providerDD.SetValue("")
	m.selected, m.gridOffset = 0, 0

	var cmds []tea.Cmd
	if m.focus == focusProvider || m.focus == focusGrid {
		cmds = append(cmds, m.setFocus(focusQuery))
	}
	req := search.Request{Query: q, Selection: sel, Filter: f}
	cmds = append(cmds, m.spinner.Tick, m.searchCmd(m.seq, req))
	return tea.Batch(cmds...)
}

func (m *Model) searchCmd(seq int, req search.Request) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		rep, err := search.Execute(context.Background(), deps, req)
		return searchDoneMsg{seq: seq, report: rep, err: err}
	}
}

func (m *Model) resetFilters() {
	f := domain.DefaultFilter()
	m.minDate.SetValue(f.MinDate)
	m.maxDate.SetValue(f.MaxDate)
	m.minRating.SetValue("")
	m.sortDD.SetValue(string(f.SortBy))
	m.orderDD.SetValue(string(f.Order))
}

func (m *Model) focusable(f focusTarget) bool {
	switch f {
	case focusProvider:
		return len(m.providerDD.Options()) > 0
	case focusSort, focusOrder, focusMinDate, focusMaxDate, focusMinRating, focusReset:
		return m.advancedOpen
	case focusGrid:
		return len(m.report.Items) > 0
	default:
		return true
	}
}

func (m *Model) focusedInput() *textinput.Model {
	switch m.focus {
	case focusQuery:
		return &m.query
	case focusMinDate:
		return &m.minDate
	case focusMaxDate:
		return &m.maxDate
	case focusMinRating:
		return &m.minRating
	}
	return nil
}

func (m *Model) focusedDropdown() *Dropdown {
	switch m.focus {
	case focusType:
		return &m.typeDD
	case focusProvider:
		return &m.providerDD
	case focusSort:
		return &m.sortDD
	case focusOrder:
		return &m.orderDD
	}
	return nil
}

// setFocus 移动键盘焦点；失去焦点的下拉框会关闭菜单。
func (m *Model) setFocus(f focusTarget) tea.Cmd {
	m.focus = f
	target := m.focusedDropdown()
	for _, dd := range m.dropdowns() {
		if dd != target {
			dd.Blur()
		}
	}
	if target != nil {
		target.Focus()
	}

	var cmd tea.Cmd
	for _, in := range []*textinput.Model{&m.query, &m.minDate, &m.maxDate, &m.minRating} {
		in.Blur()
	}
	if in := m.focusedInput(); in != nil {
		cmd = in.Focus()
	}
	return cmd
}

func (m *Model) cycleFocus(step int) tea.Cmd {
	f := m.focus
	for i := 0; i < int(focusCount); i++ {
		f = focusTarget((int(f) + step + int(focusCount)) % int(focusCount))
		if m.focusable(f) {
			return m.setFocus(f)
		}
	}
	return nil
}

func (m *Model) anyMenuOpen() bool {
	for _, dd := range m.dropdowns() {
		if dd.IsOpen() {
			return true
		}
	}
	return false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if dd := m.focusedDropdown(); dd != nil && dd.IsOpen() {
		if key != "tab" && key != "shift+tab" {
			var cmd tea.Cmd
			*dd, cmd = dd.Update(msg)
			return cmd
		}
	}

	switch key {
	case "tab":
		return m.cycleFocus(1)
	case "shift+tab":
		return m.cycleFocus(-1)
	}

	if in := m.focusedInput(); in != nil {
		if key == "enter" {
			return m.startSearch()
		}
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return cmd
	}

	if key == "q" && !m.anyMenuOpen() {
		return tea.Quit
	}

	switch m.focus {
	case focusType, focusProvider, focusSort, focusOrder:
		dd := m.focusedDropdown()
		var cmd tea.Cmd
		*dd, cmd = dd.Update(msg)
		return cmd
	case focusSearch:
		if key == "enter" || key == " " {
			return m.startSearch()
		}
	case focusAdvanced:
		if key == "enter" || key == " " {
			m.toggleAdvanced()
		}
	case focusReset:
		if key == "enter" || key == " " {
			m.resetFilters()
		}
	case focusGrid:
		return m.handleGridKey(key)
	}
	return nil
}

func (m *Model) toggleAdvanced() {
	m.advancedOpen = !m.advancedOpen
	if !m.advancedOpen {
		m.sortDD.Close()
		m.orderDD.Close()
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	// 打开的菜单盖在其他控件之上：落在菜单内的事件只交给它。
	for _, dd := range m.dropdowns() {
		if dd.InMenu(msg.X, msg.Y) {
			var cmd tea.Cmd
			*dd, cmd = dd.Update(msg)
			return cmd
		}
	}

	var cmds []tea.Cmd
	for _, dd := range m.dropdowns() {
		if dd == &m.providerDD && len(dd.Options()) == 0 {
			continue
		}
		var cmd tea.Cmd
		*dd, cmd = dd.Update(msg)
		cmds = append(cmds, cmd)
	}

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		cmds = append(cmds, m.handleClick(msg.X, msg.Y))
	case msg.Button == tea.MouseButtonWheelDown && m.lay.grid.contains(msg.X, msg.Y):
		m.scrollGrid(1)
	case msg.Button == tea.MouseButtonWheelUp && m.lay.grid.contains(msg.X, msg.Y):
		m.scrollGrid(-1)
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleClick(x, y int) tea.Cmd {
	switch {
	case m.typeDD.inControl(x, y):
		return m.setFocus(focusType)
	case m.providerDD.inControl(x, y) && m.focusable(focusProvider):
		return m.setFocus(focusProvider)
	case m.sortDD.inControl(x, y):
		return m.setFocus(focusSort)
	case m.orderDD.inControl(x, y):
		return m.setFocus(focusOrder)
	case m.lay.query.contains(x, y):
		return m.setFocus(focusQuery)
	case m.lay.search.contains(x, y):
		return tea.Batch(m.setFocus(focusSearch), m.startSearch())
	case m.lay.advanced.contains(x, y):
		cmd := m.setFocus(focusAdvanced)
		m.toggleAdvanced()
		return cmd
	case m.lay.minDate.contains(x, y):
		return m.setFocus(focusMinDate)
	case m.lay.maxDate.contains(x, y):
		return m.setFocus(focusMaxDate)
	case m.lay.minRating.contains(x, y):
		return m.setFocus(focusMinRating)
	case m.lay.reset.contains(x, y):
		cmd := m.setFocus(focusReset)
		m.resetFilters()
		return cmd
	}
	if i, ok := m.cardAt(x, y); ok {
		cmd := m.setFocus(focusGrid)
		m.selected = i
		m.openModal()
		return cmd
	}
	return nil
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	lines := []string{
		headerStyle.Render("StreamScout"),
		subtitleStyle.Render("Find where to watch your favorite Movies & TV Shows"),
		"",
		m.searchRowView(),
		m.advancedToggleView(),
	}
	if m.advancedOpen {
		lines = append(lines, m.advancedView()...)
	}
	lines = append(lines, m.statusView(), "")
	lines = append(lines, m.gridView()...)

	body := max(m.height-1, 1)
	for len(lines) < body {
		lines = append(lines, "")
	}
	lines = append(lines[:body], helpStyle.Render(m.helpText()))
	screen := strings.Join(lines, "\n")

	for _, dd := range m.dropdowns() {
		screen = overlayMenu(*dd, screen)
	}
	if m.modal != nil {
		screen = PlaceOverlay(m.lay.modal.x, m.lay.modal.y, m.modalView(), screen)
		screen = overlayMenu(m.modal.service, screen)
	}
	return screen
}

func overlayMenu(d Dropdown, screen string) string {
	menu := d.MenuView()
	if menu == "" {
		return screen
	}
	x, y, _, _ := d.MenuRect()
	return PlaceOverlay(x, y, menu, screen)
}

func (m *Model) helpText() string {
	switch {
	case m.modal != nil:
		return "↓ filter provider  •  pgup/pgdn scroll  •  esc close"
	case m.anyMenuOpen():
		return "↑↓ move  •  ↵ select  •  esc close"
	case m.focus == focusGrid:
		return "←↑↓→ move  •  ↵ details  •  tab focus  •  q quit"
	default:
		return "tab focus  •  ↵ search  •  ↓ open menu  •  ctrl+c quit"
	}
}
