package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/John-Robertt/streamscout/internal/domain"
)

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D9FF")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

func summaryLine(rep domain.SearchReport) string {
	return fmt.Sprintf("完成：fetched=%d kept=%d displayed=%d provider_failures=%d",
		rep.Summary.Fetched, rep.Summary.Kept, rep.Summary.Displayed, rep.Summary.ProviderFailures,
	)
}

// emitSearchReport 输出搜索结果。
//
// stdout 是 TTY：表格 + 摘要；否则 stdout 只输出一个 SearchReport JSON（摘要走 stderr）。
func emitSearchReport(stdout, stderr io.Writer, rep domain.SearchReport) {
	if isTTY(stdout) {
		fmt.Fprintln(stdout, renderSearchTable(rep))
		fmt.Fprintln(stdout, summaryLine(rep))
		if rep.Error != "" {
			fmt.Fprintln(stderr, rep.Error)
		}
		return
	}

	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rep)
	fmt.Fprintln(stderr, summaryLine(rep))
}

func renderSearchTable(rep domain.SearchReport) string {
	if len(rep.Items) == 0 {
		return noticeStyle.Render("No results found.")
	}
	t := newTable("#", "Type", "ID", "Title", "Date", "Rating", "Providers")
	for i, it := range rep.Items {
		date := it.Date()
		if date == "" {
			date = "—"
		}
		t.Row(
			strconv.Itoa(i+1),
			string(it.MediaType),
			strconv.Itoa(it.ID),
			truncate(it.DisplayTitle(), 48),
			date,
			strconv.FormatFloat(it.VoteAverage, 'f', 1, 64),
			formatTopProviders(it.TopProviders),
		)
	}
	return t.String()
}

// providersReport 是 providers 命令的 JSON 输出：详情表格 + 可选的 watch 页外链。
type providersReport struct {
	domain.DetailsView
	Links []domain.WatchLink `json:"links,omitempty"`
}

func emitProvidersReport(stdout, stderr io.Writer, rep providersReport) {
	if isTTY(stdout) {
		fmt.Fprintln(stdout, renderProvidersTable(rep.DetailsView))
		if len(rep.Links) > 0 {
			fmt.Fprintln(stdout, renderLinksTable(rep.Links))
		}
		fmt.Fprintf(stdout, "完成：countries=%d services=%d\n", len(rep.Rows), len(rep.Options))
		return
	}

	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rep)
	fmt.Fprintf(stderr, "完成：countries=%d services=%d\n", len(rep.Rows), len(rep.Options))
}

func renderProvidersTable(v domain.DetailsView) string {
	if len(v.Rows) == 0 {
		return noticeStyle.Render("No provider info found.")
	}
	t := newTable("Country", "Providers")
	for _, r := range v.Rows {
		names := make([]string, 0, len(r.Services))
		for _, svc := range r.Services {
			names = append(names, serviceLabel(svc))
		}
		t.Row(r.CountryName, strings.Join(names, ", "))
	}
	return t.String()
}

func renderLinksTable(links []domain.WatchLink) string {
	t := newTable("Provider", "Kind", "URL")
	for _, l := range links {
		t.Row(l.Provider, string(l.Kind), l.URL)
	}
	return t.String()
}

func serviceLabel(svc domain.Service) string {
	if svc.Kind == domain.OfferFlatrate {
		return svc.Name
	}
	return svc.Name + " (" + string(svc.Kind) + ")"
}
