package status

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	state  domain.SessionState
	opts   RenderOptions
	styles styles
	output string
}

func newModel(state domain.SessionState, opts RenderOptions) model {
	return model{
		state:  state,
		opts:   opts,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.state, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws a single snapshot of the session.
func Render(state domain.SessionState, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(state, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

// Feed is what Watch draws from. Ticks may be nil.
type Feed struct {
	States <-chan domain.SessionState
	Ticks  <-chan domain.CountdownTick
}

type stateMsg domain.SessionState

type tickMsg domain.CountdownTick

type feedClosedMsg struct{}

// liveModel redraws on every state and countdown tick, and quits once the
// session has ended.
type liveModel struct {
	state  domain.SessionState
	tick   *domain.CountdownTick
	now    func() time.Time
	width  int
	styles styles
}

func newLiveModel(now func() time.Time, width int) liveModel {
	if now == nil {
		now = time.Now
	}
	return liveModel{now: now, width: width, styles: newStyles()}
}

func (m liveModel) Init() tea.Cmd {
	return nil
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = domain.SessionState(msg)
		if !m.state.CountingDown {
			m.tick = nil
		}
		if !m.state.Active && m.state.SessionID != "" {
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		tick := domain.CountdownTick(msg)
		if tick.SessionID == m.state.SessionID {
			m.tick = &tick
		}
		return m, nil
	case feedClosedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m liveModel) View() string {
	return renderView(m.state, RenderOptions{Now: m.now(), BarWidth: m.width, Tick: m.tick}, m.styles) + "\n"
}

// Watch draws the feed to out until the watched session ends, the state
// feed closes or ctx is done.
func Watch(ctx context.Context, feed Feed, out io.Writer, now func() time.Time) error {
	p := tea.NewProgram(
		newLiveModel(now, 0),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(out),
	)

	pumpCtx, stop := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		pump(pumpCtx, feed, p.Send)
	}()

	_, err := p.Run()
	stop()
	<-pumpDone

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func pump(ctx context.Context, feed Feed, send func(tea.Msg)) {
	states, ticks := feed.States, feed.Ticks
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				send(feedClosedMsg{})
				return
			}
			send(stateMsg(state))
		case tick, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			send(tickMsg(tick))
		}
	}
}
