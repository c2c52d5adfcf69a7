package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/x/ansi"
)

// 控件宽度（单元格）
const (
	typeWidth         = 14
	providerWidth     = 24
	sortWidth         = 16
	orderWidth        = 14
	searchButtonWidth = 10
	minQueryWidth     = 16
	labelWidth        = 11
	dateWidth         = 12
	ratingWidth       = 6
	resetWidth        = 17
	columnGap         = 3

	searchRowY = 3
)

// secondColumnX 是高级面板第二列的起点。
const secondColumnX = labelWidth + sortWidth + columnGap

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// layout 保存最近一次排版的命中区域；View 与鼠标处理都依赖它。
type layout struct {
	query, search, advanced     rect
	minDate, maxDate, minRating rect
	reset                       rect
	statusY                     int
	grid                        rect
	cols, rows                  int
	modal                       rect
}

// relayout 根据当前状态重新计算各控件位置。每次 Update 之后调用。
func (m *Model) relayout() {
	var l layout

	x, y := 0, searchRowY
	m.typeDD.SetPosition(x, y)
	x += typeWidth + 1
	qw := max(minQueryWidth, m.width-typeWidth-searchButtonWidth-providerWidth-3)
	l.query = rect{x, y, qw, 1}
	m.query.Width = qw - 1
	x += qw + 1
	l.search = rect{x, y, searchButtonWidth, 1}
	x += searchButtonWidth + 1
	m.providerDD.SetPosition(x, y)

	y++
	l.advanced = rect{0, y, ansi.StringWidth(advancedLabel(true)), 1}
	y++
	if m.advancedOpen {
		m.sortDD.SetPosition(labelWidth, y)
		m.orderDD.SetPosition(secondColumnX+labelWidth, y)
		l.minDate = rect{labelWidth, y + 1, dateWidth, 1}
		l.maxDate = rect{secondColumnX + labelWidth, y + 1, dateWidth, 1}
		l.minRating = rect{labelWidth, y + 2, ratingWidth, 1}
		l.reset = rect{secondColumnX, y + 2, resetWidth, 1}
		m.minDate.Width = dateWidth - 1
		m.maxDate.Width = dateWidth - 1
		m.minRating.Width = ratingWidth - 1
		y += 3
	} else {
		m.sortDD.SetPosition(-1, -1)
		m.orderDD.SetPosition(-1, -1)
	}

	l.statusY = y
	gridY := y + 2
	gridH := max(0, m.height-1-gridY)
	l.grid = rect{0, gridY, m.width, gridH}
	l.cols = max(1, (m.width+1)/(cardOuterWidth+1))
	l.rows = max(1, gridH/cardHeight)

	for _, dd := range m.dropdowns() {
		dd.SetScreen(m.width, m.height)
	}
	if m.modal != nil {
		l.modal = m.modal.relayout(m.width, m.height)
	}

	m.lay = l
	m.ensureGridVisible()
}

func inputView(ti textinput.Model, w int) string {
	return padRight(ansi.Truncate(ti.View(), w, ""), w)
}

func (m *Model) button(label string, w int, focused bool) string {
	text := padRight(label, w)
	if focused {
		return controlFocusedStyle.Render(text)
	}
	return controlStyle.Render(text)
}

func (m *Model) searchRowView() string {
	label := "[ Search ]"
	if m.loading {
		label = "[ " + m.spinner.View() + " ]"
	}
	provider := controlDisabledStyle.Render(padRight("Provider: —", providerWidth))
	if len(m.providerDD.Options()) > 0 {
		provider = m.providerDD.View()
	}
	return m.typeDD.View() + " " +
		inputView(m.query, m.lay.query.w) + " " +
		m.button(label, searchButtonWidth, m.focus == focusSearch) + " " +
		provider
}

func advancedLabel(open bool) string {
	if open {
		return "▾ Advanced filters"
	}
	return "▸ Advanced filters"
}

func (m *Model) advancedToggleView() string {
	text := advancedLabel(m.advancedOpen)
	if m.focus == focusAdvanced {
		return controlFocusedStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func fieldLabel(s string) string {
	return labelStyle.Render(padRight(s, labelWidth))
}

func (m *Model) advancedView() []string {
	return []string{
		padRight(fieldLabel("Sort")+m.sortDD.View(), secondColumnX) + fieldLabel("Order") + m.orderDD.View(),
		padRight(fieldLabel("Min date")+inputView(m.minDate, dateWidth), secondColumnX) + fieldLabel("Max date") + inputView(m.maxDate, dateWidth),
		padRight(fieldLabel("Min rating")+inputView(m.minRating, ratingWidth), secondColumnX) + m.button("[ Reset filters ]", resetWidth, m.focus == focusReset),
	}
}

func (m *Model) statusView() string {
	switch {
	case m.loading:
		return loadingStyle.Render(m.spinner.View() + " Searching...")
	case m.err != "":
		return errorStyle.Render(m.err)
	case m.hasReport:
		return subtitleStyle.Render(fmt.Sprintf("%d results for %q", m.report.Summary.Displayed, m.report.Query))
	}
	return ""
}
