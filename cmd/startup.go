package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/fundcrawl/internal/ports"
)

type openBrowserFunc func(context.Context) (ports.Browser, error)

type browserReadyMsg struct {
	browser ports.Browser
	err     error
}

// browserStartModel animates until the browser driver is up.
type browserStartModel struct {
	spinner spinner.Model
	driver  string
	open    tea.Cmd

	browser ports.Browser
	err     error
	ready   bool
}

var driverStyle = lipgloss.NewStyle().Bold(true)

func newBrowserStartModel(driver string, open tea.Cmd) browserStartModel {
	return browserStartModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		driver: driver,
		open:   open,
	}
}

func (m browserStartModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.open)
}

func (m browserStartModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case browserReadyMsg:
		m.ready = true
		m.browser = msg.browser
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m browserStartModel) View() string {
	if m.ready {
		return ""
	}
	return fmt.Sprintf("%s starting %s browser", m.spinner.View(), driverStyle.Render(m.driver))
}

// launchCmd opens the browser off the UI loop. A browser that comes up after
// ctx ended is closed instead of returned.
func launchCmd(ctx context.Context, open openBrowserFunc) tea.Cmd {
	return func() tea.Msg {
		browser, err := open(ctx)
		if err != nil {
			return browserReadyMsg{err: err}
		}
		if ctx.Err() != nil {
			_ = browser.Close()
			return browserReadyMsg{err: ctx.Err()}
		}
		return browserReadyMsg{browser: browser}
	}
}

// openBrowserWithSpinner runs open behind a spinner on output.
func openBrowserWithSpinner(ctx context.Context, output io.Writer, driver string, open openBrowserFunc) (ports.Browser, error) {
	p := tea.NewProgram(
		newBrowserStartModel(driver, launchCmd(ctx, open)),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	m, ok := final.(browserStartModel)
	if !ok {
		return nil, fmt.Errorf("unexpected startup model type %T", final)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.browser == nil {
		return nil, errors.New("browser did not start")
	}
	return m.browser, nil
}
