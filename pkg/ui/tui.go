package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/VincentCordobes/ebookz/internal/app"
	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	searchEvents "github.com/VincentCordobes/ebookz/internal/app_events/search"
	transferEvents "github.com/VincentCordobes/ebookz/internal/app_events/transfer"
	"github.com/VincentCordobes/ebookz/internal/style"
	"github.com/VincentCordobes/ebookz/internal/util"
)

const requestWidth = 60

var columns = []table.Column{
	{Title: "File", Width: 40},
	{Title: "Received", Width: 12},
	{Title: "Status", Width: 12},
}

type transferRow struct {
	id         string
	file       string
	received   uint64
	advertised uint64
	status     string
}

type model struct {
	appController AppController
	query         string

	state    app.State
	spinner  spinner.Model
	progress progress.Model
	table    table.Model

	transfers []*transferRow
	active    *transferRow
	requests  []string
	status    string
	lastError error

	finished bool
	path     string
	err      error
}

// InitialModel creates the search view for controller.
func InitialModel(controller AppController, query string) model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(0),
	)
	t.SetStyles(style.NewTableStyles())

	return model{
		appController: controller,
		query:         query,
		spinner:       style.NewSpinner(),
		progress:      style.NewProgress(),
		table:         t,
	}
}

func (m model) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	go m.appController.Run(ctx, cancel)
	return tea.Batch(m.spinner.Tick, m.listenForAppMessages())
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		return <-m.appController.UIMessages()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-20, 10), 80)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case appevents.AppUIMessage:
		if m.handleAppMessage(msg) {
			return m, tea.Quit
		}
		return m, m.listenForAppMessages()
	}
	return m, nil
}

// handleAppMessage applies msg and reports whether the session is over.
func (m *model) handleAppMessage(msg appevents.AppUIMessage) bool {
	switch msg := msg.(type) {
	case searchEvents.StateChangedMsg:
		m.state = msg.To
	case searchEvents.SearchIssuedMsg:
		m.status = fmt.Sprintf("Searching %s for %q", msg.Channel, msg.Query)
	case searchEvents.OfferReceivedMsg:
		if msg.Results {
			m.status = fmt.Sprintf("Result listing offered by %s", msg.From)
		} else {
			m.status = fmt.Sprintf("%s offered %s", msg.From, msg.Offer.FileName)
		}
	case searchEvents.OfferDroppedMsg:
		slog.Debug("Offer dropped", "from", msg.From, "reason", msg.Reason)
	case searchEvents.ResultsExtractedMsg:
		m.status = fmt.Sprintf("Found %d books, requesting them", len(msg.Commands))
	case searchEvents.RequestSentMsg:
		m.requests = append(m.requests, msg.Command)
	case searchEvents.FinishedMsg:
		m.finished = true
		m.path = msg.Path
		m.err = msg.Err
		return true
	case transferEvents.ConnectedMsg:
		row := &transferRow{id: msg.SessionID, file: msg.FileName, status: "connected"}
		m.transfers = append(m.transfers, row)
		m.active = row
	case transferEvents.ProgressMsg:
		if row := m.row(msg.SessionID); row != nil {
			row.received = msg.Received
			row.advertised = msg.Advertised
			row.status = "receiving"
			m.active = row
		}
	case transferEvents.CompletedMsg:
		if row := m.row(msg.SessionID); row != nil {
			row.received = msg.Received
			row.status = "done"
		}
	case transferEvents.FailedMsg:
		if row := m.row(msg.SessionID); row != nil {
			row.received = msg.Received
			row.status = "failed"
		}
	case appevents.StatusMsg:
		m.status = msg.Message
	case appevents.ErrorMsg:
		m.lastError = msg.Err
	}
	m.syncTable()
	return false
}

func (m *model) row(id string) *transferRow {
	for _, row := range m.transfers {
		if row.id == id {
			return row
		}
	}
	return nil
}

func (m *model) syncTable() {
	rows := make([]table.Row, 0, len(m.transfers))
	for _, row := range m.transfers {
		rows = append(rows, table.Row{row.file, util.FormatSize(row.received), row.status})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 2)
}

func describe(state app.State) string {
	switch state {
	case app.Idle:
		return "Connecting to chat server..."
	case app.Connected:
		return "Joined channel, waiting before searching..."
	case app.SearchIssued, app.AwaitingOffer:
		return "Waiting for offers..."
	case app.ResultTransfer:
		return "Downloading result listing..."
	case app.DirectTransfer:
		return "Downloading book..."
	default:
		return "Finishing..."
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("ebookz"))
	b.WriteString(" ")
	b.WriteString(style.HighlightFontStyle.Render(m.query))
	b.WriteString("\n\n")

	switch {
	case m.finished && m.err == nil:
		b.WriteString(style.SuccessStyle.Render("Downloaded " + m.path))
	case m.finished:
		b.WriteString(style.ErrorStyle.Render("Search failed: " + m.err.Error()))
	default:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), describe(m.state)))
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(style.HelpStyle.Render(m.status))
		b.WriteString("\n")
	}

	if len(m.transfers) > 0 {
		b.WriteString("\n")
		b.WriteString(style.BaseStyle.Render(m.table.View()))
		b.WriteString("\n")
	}

	if m.active != nil && m.active.status == "receiving" {
		b.WriteString(fmt.Sprintf("%s %s / %s\n",
			m.progress.ViewAs(util.Percent(m.active.received, m.active.advertised)),
			util.FormatSize(m.active.received),
			util.FormatSize(m.active.advertised),
		))
	}

	if len(m.requests) > 0 {
		b.WriteString("\n")
		b.WriteString(style.HeaderStyle.Render(fmt.Sprintf("Requested (%d)", len(m.requests))))
		b.WriteString("\n")
		for _, request := range m.requests {
			b.WriteString(style.RequestStyle.Render(util.PadRight(request, requestWidth)))
			b.WriteString("\n")
		}
	}

	if m.lastError != nil {
		b.WriteString("\n")
		b.WriteString(style.ErrorStyle.Render("Error: " + m.lastError.Error()))
		b.WriteString("\n")
	}

	b.WriteString(style.HelpStyle.Render("\nPress ctrl + c to quit"))
	return style.DocStyle.Render(b.String())
}
