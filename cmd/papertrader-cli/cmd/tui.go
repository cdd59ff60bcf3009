package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrader/pkg/papertrader"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	endedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

const tuiHelp = "0-9 amount  b buy  s sell  h hold  x quit session  esc exit"

var tuiDate string

var tuiCmd = &cobra.Command{
	Use:   "tui <ticker>",
	Short: "Play a session in a full-screen terminal UI",
	Long: `Start a session for a ticker and play it full screen.

Type an amount, then press b or s. Each accepted buy, sell or hold moves
the session to the next day.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		p := tea.NewProgram(
			newTUIModel(ctx, newClient(), args[0], tuiDate),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		final, err := p.Run()
		if err != nil {
			return err
		}
		if m, ok := final.(tuiModel); ok && m.fatal != nil {
			return m.fatal
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVarP(&tuiDate, "date", "d", "", "first day of the window (YYYY-MM-DD)")
}

type startedMsg struct {
	state papertrader.State
	err   error
}

// turnMsg carries an accepted action and, unless the action ended the
// session, the day advance that followed it.
type turnMsg struct {
	action papertrader.ActionResult
	day    *papertrader.DayResult
	err    error
}

type tuiModel struct {
	ctx    context.Context
	client *papertrader.Client
	ticker string
	date   string

	state   papertrader.State
	summary *papertrader.Summary
	amount  string
	log     []string
	pending bool
	ended   bool
	fatal   error

	viewport      viewport.Model
	ready         bool
	width, height int
}

func newTUIModel(ctx context.Context, c *papertrader.Client, ticker, date string) tuiModel {
	return tuiModel{ctx: ctx, client: c, ticker: ticker, date: date, pending: true}
}

func (m tuiModel) Init() tea.Cmd {
	ctx, c, ticker, date := m.ctx, m.client, m.ticker, m.date
	return func() tea.Msg {
		st, err := c.StartGame(ctx, ticker, date)
		return startedMsg{state: st, err: err}
	}
}

// turn applies action and advances the day when the session is still
// running afterwards.
func (m tuiModel) turn(action string, amount decimal.Decimal) tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		res, err := c.Act(ctx, action, amount)
		if err != nil {
			return turnMsg{err: err}
		}
		if res.Summary != nil {
			return turnMsg{action: res}
		}
		day, err := c.NextDay(ctx)
		if err != nil {
			return turnMsg{action: res, err: err}
		}
		return turnMsg{action: res, day: &day}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "backspace":
			if n := len(m.amount); n > 0 {
				m.amount = m.amount[:n-1]
			}
			return m, nil
		case "b", "s", "h", "x":
			if m.pending || m.ended {
				return m, nil
			}
			return m.submit(key)
		default:
			if len(key) == 1 && (key[0] >= '0' && key[0] <= '9' || key[0] == '.') {
				m.amount += key
				return m, nil
			}
		}

	case startedMsg:
		m.pending = false
		if msg.err != nil {
			m.fatal = fmt.Errorf("start: %w", msg.err)
			return m, tea.Quit
		}
		m.state = msg.state
		m.logf("Started %s from %s with %s cash.", m.state.Ticker, m.state.StartDate, m.state.CashBalance.StringFixed(2))
		m.refresh()
		return m, nil

	case turnMsg:
		m.pending = false
		m.applyTurn(msg)
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m tuiModel) submit(key string) (tea.Model, tea.Cmd) {
	var action string
	amount := decimal.Zero
	switch key {
	case "b", "s":
		action = "buy"
		if key == "s" {
			action = "sell"
		}
		a, err := decimal.NewFromString(m.amount)
		if err != nil {
			m.logError(fmt.Errorf("enter an amount before pressing %s", key))
			m.refresh()
			return m, nil
		}
		amount = a
	case "h":
		action = "hold"
	case "x":
		action = "quit"
	}
	m.amount = ""
	m.pending = true
	return m, m.turn(action, amount)
}

func (m *tuiModel) applyTurn(msg turnMsg) {
	if msg.action.Message != "" {
		r := msg.action
		m.state.CashBalance = r.CashBalance
		m.state.SharesHeld = r.SharesHeld
		m.state.TradeHistory = append(m.state.TradeHistory, r.Trade)
		m.logf("%s: %s %s @ %s", r.Message, r.Trade.Action, r.Trade.Amount.String(), r.Trade.Price.StringFixed(2))
		if r.Summary != nil {
			m.finish(r.Summary)
		}
	}
	if msg.day != nil {
		d := msg.day
		m.state.CurrentDayIndex = d.CurrentDayIndex
		m.logf("%s", d.Message)
		if d.Finished {
			m.finish(d.Summary)
		}
	}
	if msg.err != nil {
		m.logError(msg.err)
	}
}

func (m *tuiModel) finish(s *papertrader.Summary) {
	m.ended = true
	m.state.IsActive = false
	m.summary = s
}

func (m *tuiModel) logf(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
}

func (m *tuiModel) logError(err error) {
	var apiErr *papertrader.APIError
	if errors.As(err, &apiErr) {
		m.log = append(m.log, errStyle.Render(apiErr.Message))
		return
	}
	m.log = append(m.log, errStyle.Render(err.Error()))
}

func (m *tuiModel) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoBottom()
	}
}

func (m tuiModel) renderContent() string {
	var b strings.Builder
	for i, p := range m.state.PriceSeries {
		line := fmt.Sprintf("  Day %d  %s  %10s", i+1, p.Date, p.ClosingPrice.StringFixed(2))
		switch {
		case i == m.state.CurrentDayIndex && !m.ended:
			line = currentStyle.Render("> " + line[2:])
		case i > m.state.CurrentDayIndex && !m.ended:
			line = dimStyle.Render("  Day " + fmt.Sprint(i+1) + "  ...")
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\n  Cash %s   Shares %s\n", m.state.CashBalance.StringFixed(2), m.state.SharesHeld.String())

	if s := m.summary; s != nil {
		pl := s.ProfitLoss.StringFixed(2)
		if s.ProfitLoss.IsNegative() {
			pl = lossStyle.Render(pl)
		} else {
			pl = gainStyle.Render("+" + pl)
		}
		fmt.Fprintf(&b, "  Portfolio %s   P/L %s   Days %d\n", s.TotalPortfolioValue.StringFixed(2), pl, s.DaysPlayed)
	}

	b.WriteString("\n")
	for _, l := range m.log {
		b.WriteString("  " + l + "\n")
	}
	return b.String()
}

func (m tuiModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle
	text := fmt.Sprintf(" %s  %s    day %d/%d ", m.state.Ticker, m.state.StartDate,
		min(m.state.CurrentDayIndex+1, len(m.state.PriceSeries)), len(m.state.PriceSeries))
	if m.ended {
		header = endedStyle
		text = fmt.Sprintf(" %s  %s    session ended ", m.state.Ticker, m.state.StartDate)
	}
	if m.state.Ticker == "" {
		text = " starting " + strings.ToUpper(m.ticker) + "... "
	}

	footer := dimStyle.Render(tuiHelp)
	if !m.ended {
		footer = fmt.Sprintf("amount: %-10s  %s", m.amount, footer)
	}
	return header.Render(padRight(text, m.width)) + "\n" + m.viewport.View() + "\n" + footer
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
