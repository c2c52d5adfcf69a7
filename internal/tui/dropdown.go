package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
)

// MaxMenuRows 是菜单一次最多显示的行数，超出部分滚动。
const MaxMenuRows = 8

const (
	minDropdownWidth = 6
	logoMarker       = "◆ "
)

// Option 是下拉框的一个选项。Logo 非空时菜单中带一个标记。
type Option struct {
	Value string
	Label string
	Logo  string
}

// OpenedMsg 在某个下拉框打开时广播；ID 不同的下拉框收到后关闭自己。
type OpenedMsg struct {
	ID string
}

// ChangedMsg 在用户选中某个选项后发出（即使值没变）。
type ChangedMsg struct {
	ID    string
	Value string
}

// Dropdown 是单行的选择控件。菜单不在控件内部渲染，而是由调用方
// 用 MenuView/MenuRect 叠加到整个屏幕之上。
//
// focus 为 -1 表示没有高亮项；菜单每次打开或关闭都会重置为 -1。
type Dropdown struct {
	ID          string
	Placeholder string
	Width       int

	options []Option
	value   string

	open    bool
	focused bool
	focus   int
	offset  int

	x, y             int
	screenW, screenH int
}

// NewDropdown 创建下拉框；id 为空时生成一个随机 id。
func NewDropdown(id, placeholder string, width int, opts []Option, value string) Dropdown {
	if id == "" {
		id = "dropdown-" + uuid.NewString()
	}
	if width < minDropdownWidth {
		width = minDropdownWidth
	}
	return Dropdown{
		ID:          id,
		Placeholder: placeholder,
		Width:       width,
		options:     append([]Option(nil), opts...),
		value:       value,
		focus:       -1,
	}
}

func (d *Dropdown) SetOptions(opts []Option) {
	d.options = append([]Option(nil), opts...)
	if d.focus >= len(d.options) {
		d.focus = len(d.options) - 1
	}
	d.ensureVisible()
}

func (d Dropdown) Options() []Option { return d.options }

func (d Dropdown) Value() string { return d.value }

func (d *Dropdown) SetValue(v string) { d.value = v }

// SelectedLabel 返回与当前值相等的选项的 label；没有匹配时返回 placeholder。
func (d Dropdown) SelectedLabel() string {
	for _, o := range d.options {
		if o.Value == d.value {
			return o.Label
		}
	}
	return d.Placeholder
}

func (d Dropdown) IsOpen() bool { return d.open }

// FocusIndex 是菜单中高亮的选项下标；-1 表示没有。
func (d Dropdown) FocusIndex() int { return d.focus }

func (d Dropdown) Focused() bool { return d.focused }

func (d *Dropdown) Focus() { d.focused = true }

// Blur 失去键盘焦点时顺带关闭菜单。
func (d *Dropdown) Blur() {
	d.focused = false
	d.Close()
}

// SetPosition 设置控件在屏幕上的左上角坐标（用于鼠标命中与菜单定位）。
func (d *Dropdown) SetPosition(x, y int) {
	d.x, d.y = x, y
}

// SetScreen 设置屏幕尺寸；菜单会被限制在屏幕内。0 表示不限制。
func (d *Dropdown) SetScreen(w, h int) {
	d.screenW, d.screenH = w, h
}

// Open 打开菜单并广播 OpenedMsg；已打开时什么也不做。
func (d *Dropdown) Open() tea.Cmd {
	if d.open {
		return nil
	}
	d.open = true
	d.focus = -1
	d.offset = 0
	id := d.ID
	return func() tea.Msg { return OpenedMsg{ID: id} }
}

func (d *Dropdown) Close() {
	d.open = false
	d.focus = -1
	d.offset = 0
}

func (d *Dropdown) Toggle() tea.Cmd {
	if d.open {
		d.Close()
		return nil
	}
	return d.Open()
}

func (d Dropdown) menuRows() int {
	return min(len(d.options), MaxMenuRows)
}

// MenuRect 返回菜单在屏幕上的位置与尺寸。
// 默认紧贴控件下方；下方放不下而上方放得下时翻到控件上方。
func (d Dropdown) MenuRect() (x, y, w, h int) {
	w, h = d.Width, d.menuRows()
	x, y = d.x, d.y+1
	if d.screenW > 0 && x+w > d.screenW {
		x = max(0, d.screenW-w)
	}
	if d.screenH > 0 && y+h > d.screenH && d.y-h >= 0 {
		y = d.y - h
	}
	return x, y, w, h
}

func (d Dropdown) inControl(mx, my int) bool {
	return my == d.y && mx >= d.x && mx < d.x+d.Width
}

// InMenu 判断屏幕坐标是否落在已打开的菜单内。
func (d Dropdown) InMenu(mx, my int) bool {
	if !d.open {
		return false
	}
	x, y, w, h := d.MenuRect()
	return mx >= x && mx < x+w && my >= y && my < y+h
}

func (d Dropdown) menuIndexAt(mx, my int) (int, bool) {
	if !d.InMenu(mx, my) {
		return 0, false
	}
	_, y, _, _ := d.MenuRect()
	i := d.offset + my - y
	if i < 0 || i >= len(d.options) {
		return 0, false
	}
	return i, true
}

func (d *Dropdown) moveFocus(i int) {
	d.focus = i
	d.ensureVisible()
}

func (d *Dropdown) ensureVisible() {
	rows := d.menuRows()
	if d.focus >= 0 && d.focus < d.offset {
		d.offset = d.focus
	}
	if rows > 0 && d.focus >= d.offset+rows {
		d.offset = d.focus - rows + 1
	}
	if maxOffset := len(d.options) - rows; d.offset > maxOffset {
		d.offset = maxOffset
	}
	if d.offset < 0 {
		d.offset = 0
	}
}

func (d *Dropdown) selectIndex(i int) tea.Cmd {
	d.value = d.options[i].Value
	d.Close()
	msg := ChangedMsg{ID: d.ID, Value: d.value}
	return func() tea.Msg { return msg }
}

// Update 处理 OpenedMsg、键盘（仅在获得焦点时）与鼠标消息。
func (d Dropdown) Update(msg tea.Msg) (Dropdown, tea.Cmd) {
	switch msg := msg.(type) {
	case OpenedMsg:
		if msg.ID != d.ID && d.open {
			d.Close()
		}
		return d, nil
	case tea.KeyMsg:
		if !d.focused {
			return d, nil
		}
		return d.handleKey(msg)
	case tea.MouseMsg:
		return d.handleMouse(msg)
	}
	return d, nil
}

func (d Dropdown) handleKey(msg tea.KeyMsg) (Dropdown, tea.Cmd) {
	n := len(d.options)
	switch msg.String() {
	case "down":
		var cmd tea.Cmd
		if !d.open {
			cmd = d.Open()
		}
		if n > 0 {
			d.moveFocus(min(d.focus+1, n-1))
		}
		return d, cmd
	case "up":
		if d.open && n > 0 {
			d.moveFocus(max(d.focus-1, 0))
		}
	case "enter":
		if !d.open {
			return d, d.Open()
		}
		if d.focus >= 0 && d.focus < n {
			return d, d.selectIndex(d.focus)
		}
		d.Close()
	case " ":
		return d, d.Toggle()
	case "esc":
		d.Close()
	}
	return d, nil
}

func (d Dropdown) handleMouse(msg tea.MouseMsg) (Dropdown, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if i, ok := d.menuIndexAt(msg.X, msg.Y); ok {
				return d, d.selectIndex(i)
			}
			if d.inControl(msg.X, msg.Y) {
				return d, d.Toggle()
			}
			if d.open && !d.InMenu(msg.X, msg.Y) {
				d.Close()
			}
		case tea.MouseButtonWheelUp:
			if d.InMenu(msg.X, msg.Y) && d.offset > 0 {
				d.offset--
			}
		case tea.MouseButtonWheelDown:
			if d.InMenu(msg.X, msg.Y) && d.offset+d.menuRows() < len(d.options) {
				d.offset++
			}
		}
	case tea.MouseActionMotion:
		if i, ok := d.menuIndexAt(msg.X, msg.Y); ok {
			d.focus = i
		}
	}
	return d, nil
}

// View 渲染控件本身（一行，宽度固定为 Width）。
func (d Dropdown) View() string {
	arrow := "▾"
	if d.open {
		arrow = "▴"
	}
	inner := d.Width - 3
	text := " " + padRight(ansi.Truncate(d.SelectedLabel(), inner, "…"), inner) + " " + arrow
	if d.focused {
		return controlFocusedStyle.Render(text)
	}
	return controlStyle.Render(text)
}

// MenuView 渲染当前可见的菜单行；菜单关闭或没有选项时返回空串。
func (d Dropdown) MenuView() string {
	rows := d.menuRows()
	if !d.open || rows == 0 {
		return ""
	}
	inner := d.Width - 3
	lines := make([]string, 0, rows)
	for i := d.offset; i < d.offset+rows && i < len(d.options); i++ {
		o := d.options[i]
		marker := "  "
		if o.Logo != "" {
			marker = logoMarker
		}
		tail := " "
		switch {
		case i == d.offset && d.offset > 0:
			tail = "↑"
		case i == d.offset+rows-1 && i < len(d.options)-1:
			tail = "↓"
		}
		text := marker + padRight(ansi.Truncate(o.Label, inner, "…"), inner) + tail

		style := menuStyle
		switch {
		case o.Value == d.value:
			style = menuSelectedStyle
		case i == d.focus:
			style = menuFocusStyle
		}
		lines = append(lines, style.Render(text))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, w int) string {
	if n := w - ansi.StringWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
