package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"samsim/server/internal/proto"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type connMsg struct{ conn *websocket.Conn }
type stateMsg struct{ payload proto.StatePayload }
type errMsg struct{ err error }

type model struct {
	url      string
	conn     *websocket.Conn
	table    table.Model
	state    proto.StatePayload
	lastSeen time.Time
	haveData bool
	err      error
}

func newModel(url string) model {
	cols := []table.Column{
		{Title: "Site", Width: 14},
		{Title: "State", Width: 10},
		{Title: "Mode", Width: 8},
		{Title: "Az", Width: 7},
		{Title: "El", Width: 6},
		{Title: "Tgts", Width: 5},
		{Title: "Rdy", Width: 4},
		{Title: "Fly", Width: 4},
		{Title: "Auth", Width: 5},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(12))
	return model{url: url, table: t}
}

// Run dials the bridge websocket and renders mission state until the user
// quits.
func Run(url string) error {
	p := tea.NewProgram(newModel(url), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return connect(m.url)
}

func connect(url string) tea.Cmd {
	return func() tea.Msg {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return errMsg{err: fmt.Errorf("dial %s: %w", url, err)}
		}
		request, err := json.Marshal(map[string]string{"type": proto.TypeGetState})
		if err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, request)
		}
		return connMsg{conn: conn}
	}
}

func readNext(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return errMsg{err: err}
			}
			var payload proto.StatePayload
			if err := json.Unmarshal(data, &payload); err != nil {
				continue
			}
			if payload.Type != proto.TypeUpdate && payload.Type != proto.TypeState {
				continue
			}
			return stateMsg{payload: payload}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.conn != nil {
				_ = m.conn.Close()
			}
			return m, tea.Quit
		}
	case connMsg:
		m.conn = msg.conn
		m.err = nil
		return m, readNext(m.conn)
	case stateMsg:
		m.state = msg.payload
		m.lastSeen = time.Now()
		m.haveData = true
		m.table.SetRows(siteRows(msg.payload))
		return m, readNext(m.conn)
	case errMsg:
		m.err = msg.err
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
			return connect(m.url)()
		})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func siteRows(payload proto.StatePayload) []table.Row {
	ids := make([]string, 0, len(payload.Sites))
	for id := range payload.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		site := payload.Sites[id]
		auth := "hold"
		if site.EngAuth {
			auth = "free"
		}
		rows = append(rows, table.Row{
			id,
			fmt.Sprintf("%d", site.SystemState),
			fmt.Sprintf("%d", site.RadarMode),
			fmt.Sprintf("%.1f", site.AntennaAz),
			fmt.Sprintf("%.1f", site.AntennaEl),
			fmt.Sprintf("%d", len(site.Targets)),
			fmt.Sprintf("%d", site.MissilesReady),
			fmt.Sprintf("%d", site.MissilesInFlight),
			auth,
		})
	}
	return rows
}

func (m model) View() string {
	header := titleStyle.Render("samsim monitor") + dimStyle.Render("  "+m.url)

	var link string
	switch {
	case m.err != nil:
		link = warnStyle.Render(fmt.Sprintf("disconnected: %v (retrying)", m.err))
	case m.conn == nil:
		link = dimStyle.Render("connecting...")
	case m.state.DCSConnected:
		link = okStyle.Render("DCS connected")
	default:
		link = warnStyle.Render("DCS offline")
	}

	status := fmt.Sprintf("mission t=%.1fs", m.state.MissionTime)
	if m.state.Paused {
		status += "  " + pausedStyle.Render("PAUSED")
	}
	if m.haveData {
		status += dimStyle.Render(fmt.Sprintf("  last update %s ago", time.Since(m.lastSeen).Round(time.Second)))
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n\n%s\n", header, link, status, m.table.View(), dimStyle.Render("q to quit"))
}
