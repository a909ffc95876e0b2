// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"

	"github.com/devcode1981/stacks-blockchain/rpc"
)

// refreshInterval paces background reloads of the tip and name table.
const refreshInterval = 10 * time.Second

// nameLimit caps how many records one namespace view loads.
const nameLimit = 100

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type nameRow struct {
	fqn      string
	owner    string
	expires  string
	zonefile string
}

type infoMsg *rpc.InfoResponse
type namespacesMsg []string
type namesMsg []nameRow
type tickMsg time.Time
type errMsg struct{ err error }

type model struct {
	client  *rpc.Client
	nodeURL string

	info       *rpc.InfoResponse
	namespaces []string
	nsIndex    int

	rows   []nameRow
	filter textinput.Model
	table  table.Model
	slab   *util.Slab

	width  int
	height int
	err    error
}

func newModel(client *rpc.Client, nodeURL string) *model {
	filter := textinput.New()
	filter.Placeholder = "filter (press /)"
	filter.CharLimit = 64

	columns := []table.Column{
		{Title: "NAME", Width: 28},
		{Title: "OWNER", Width: 36},
		{Title: "EXPIRES", Width: 10},
		{Title: "ZONEFILE", Width: 20},
	}
	nameTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	return &model{
		client:  client,
		nodeURL: nodeURL,
		filter:  filter,
		table:   nameTable,
		slab:    util.MakeSlab(100*1024, 2048),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.fetchInfo(), m.fetchNamespaces(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) fetchInfo() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		info, err := m.client.Info(ctx)
		if err != nil {
			return errMsg{err}
		}
		return infoMsg(info)
	}
}

func (m *model) fetchNamespaces() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ids, err := m.client.Namespaces(ctx)
		if err != nil {
			return errMsg{err}
		}
		return namespacesMsg(ids)
	}
}

func (m *model) fetchNames() tea.Cmd {
	if len(m.namespaces) == 0 {
		return nil
	}
	namespace := m.namespaces[m.nsIndex]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		names, err := m.client.NamespaceNames(ctx, namespace, 0)
		if err != nil {
			return errMsg{err}
		}
		if len(names) > nameLimit {
			names = names[:nameLimit]
		}

		rows := make([]nameRow, 0, len(names))
		for _, fqn := range names {
			record, err := m.client.GetName(ctx, fqn)
			if err != nil {
				continue
			}
			expires := "never"
			if record.ExpireBlock != 0 {
				expires = fmt.Sprintf("%d", record.ExpireBlock)
			}
			zonefile := record.ZonefileHash
			if len(zonefile) > 16 {
				zonefile = zonefile[:16] + ".."
			}
			rows = append(rows, nameRow{
				fqn:      fqn,
				owner:    record.Owner,
				expires:  expires,
				zonefile: zonefile,
			})
		}
		return namesMsg(rows)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if msg.Height > 8 {
			m.table.SetHeight(msg.Height - 8)
		}
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "esc":
				m.filter.Blur()
				m.filter.SetValue("")
				m.applyFilter()
				return m, nil
			case "enter":
				m.filter.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		case "tab":
			if len(m.namespaces) > 0 {
				m.nsIndex = (m.nsIndex + 1) % len(m.namespaces)
				return m, m.fetchNames()
			}
			return m, nil
		case "r":
			return m, tea.Batch(m.fetchInfo(), m.fetchNames())
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case infoMsg:
		m.info = msg
		m.err = nil
		return m, nil

	case namespacesMsg:
		m.namespaces = msg
		if m.nsIndex >= len(m.namespaces) {
			m.nsIndex = 0
		}
		return m, m.fetchNames()

	case namesMsg:
		m.rows = msg
		m.err = nil
		m.applyFilter()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchInfo(), m.fetchNames(), tick())

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// applyFilter rebuilds the table rows through the fuzzy matcher,
// best matches first.
func (m *model) applyFilter() {
	pattern := lowerPattern(m.filter.Value())

	type scored struct {
		row   nameRow
		score int
	}
	matches := make([]scored, 0, len(m.rows))
	for _, row := range m.rows {
		score := fuzzyScore(row.fqn+" "+row.owner, pattern, m.slab)
		if score > 0 {
			matches = append(matches, scored{row, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	rows := make([]table.Row, len(matches))
	for i, match := range matches {
		rows[i] = table.Row{match.row.fqn, match.row.owner, match.row.expires, match.row.zonefile}
	}
	m.table.SetRows(rows)
}

func (m *model) View() string {
	var header string
	if m.info != nil {
		header = fmt.Sprintf("%s  %s  %s %d  %s %s",
			headerStyle.Render("bns-top"),
			m.nodeURL,
			labelStyle.Render("tip"), m.info.TipHeight,
			labelStyle.Render("net"), m.info.Network,
		)
	} else {
		header = fmt.Sprintf("%s  %s  connecting...", headerStyle.Render("bns-top"), m.nodeURL)
	}

	namespace := "(none)"
	if len(m.namespaces) > 0 {
		namespace = m.namespaces[m.nsIndex]
	}
	nsLine := fmt.Sprintf("%s %s (%d/%d)",
		labelStyle.Render("namespace"), namespace, m.nsIndex+1, len(m.namespaces))

	body := header + "\n" + nsLine + "\n" + m.filter.View() + "\n" + m.table.View()
	if m.err != nil {
		body += "\n" + errorStyle.Render("error: "+m.err.Error())
	}
	body += helpStyle.Render("\n/ filter  tab namespace  r refresh  q quit")
	return body
}
