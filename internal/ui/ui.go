package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/player"
	"github.com/desertthunder/fitplay/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlayerView ViewState = iota
	SourceView
	CuratedView
)

const volumeStep = 10

// Connector starts and ends the streaming login.
type Connector interface {
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
}

// Opts contains the dependencies of a [Model].
type Opts struct {
	Controllers []player.Controller
	Flow        Connector
	Curated     []string
}

type subscription struct {
	ch     <-chan models.Snapshot
	cancel func()
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	controllers []player.Controller
	subs        map[models.Provider]subscription
	snapshots   map[models.Provider]models.Snapshot
	selected    int
	flow        Connector
	input       textinput.Model
	curated     list.Model
	hasCurated  bool
	notice      string
	err         error
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel subscribes to every controller. Call [Model.Close] once the program exits.
func NewModel(ctx context.Context, opts Opts) *Model {
	input := textinput.New()
	input.Placeholder = "Spotify or YouTube URL"
	input.CharLimit = 512

	items := make([]list.Item, len(opts.Curated))
	for i, name := range opts.Curated {
		items[i] = curatedItem(name)
	}
	curated := list.New(items, list.NewDefaultDelegate(), 0, 0)
	curated.Title = "Curated"

	m := &Model{
		ctx:         ctx,
		view:        PlayerView,
		controllers: opts.Controllers,
		subs:        map[models.Provider]subscription{},
		snapshots:   map[models.Provider]models.Snapshot{},
		flow:        opts.Flow,
		input:       input,
		curated:     curated,
		hasCurated:  len(items) > 0,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	for _, c := range opts.Controllers {
		ch, cancel := c.Subscribe()
		m.subs[c.Provider()] = subscription{ch: ch, cancel: cancel}
		m.snapshots[c.Provider()] = c.Snapshot()
	}
	return m
}

// Close ends every subscription.
func (m *Model) Close() {
	for _, s := range m.subs {
		s.cancel()
	}
}

// Init starts listening for snapshots.
func (m *Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.controllers))
	for _, c := range m.controllers {
		cmds = append(cmds, m.waitForSnapshot(c.Provider()))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.curated.SetSize(msg.Width-4, msg.Height-8)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SourceView:
			return m.handleSourceKeys(msg)
		case CuratedView:
			return m.handleCuratedKeys(msg)
		default:
			return m.handlePlayerKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgSnapshot:
			s := msg.data.(models.Snapshot)
			m.snapshots[s.Provider] = s
			return m, m.waitForSnapshot(s.Provider)
		case MsgCommandDone:
			res := msg.data.(commandResult)
			if errors.Is(res.err, shared.ErrSuperseded) {
				return m, nil
			}
			m.err = res.err
			if res.err == nil {
				m.notice = fmt.Sprintf("%s: %s", res.provider, res.action)
			}
			return m, nil
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SourceView:
		return m.renderSource()
	case CuratedView:
		return m.renderCurated()
	default:
		return m.renderPlayer()
	}
}

func (m *Model) current() player.Controller {
	if len(m.controllers) == 0 {
		return nil
	}
	return m.controllers[m.selected]
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.current()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.switchTab):
		if len(m.controllers) > 0 {
			m.selected = (m.selected + 1) % len(m.controllers)
			m.err = nil
			m.notice = ""
		}
		return m, nil
	case c == nil:
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		switch m.snapshots[c.Provider()].Status {
		case models.StatusPlaying, models.StatusBuffering:
			return m, m.run(c, "pause", c.Pause)
		default:
			return m, m.run(c, "resume", c.Resume)
		}
	case key.Matches(msg, m.keys.next):
		return m, m.run(c, "next", c.Next)
	case key.Matches(msg, m.keys.previous):
		return m, m.run(c, "previous", c.Previous)
	case key.Matches(msg, m.keys.volumeUp):
		return m, m.changeVolume(c, volumeStep)
	case key.Matches(msg, m.keys.volumeDown):
		return m, m.changeVolume(c, -volumeStep)
	case key.Matches(msg, m.keys.mute):
		return m, m.run(c, "mute", c.ToggleMute)
	case key.Matches(msg, m.keys.open):
		m.view = SourceView
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.curated):
		if c.Provider() == models.ProviderYouTube && m.hasCurated {
			m.view = CuratedView
		}
		return m, nil
	case key.Matches(msg, m.keys.connect):
		if m.flow == nil || c.Provider() != models.ProviderSpotify {
			return m, nil
		}
		return m, m.run(c, "connect", func(ctx context.Context) error {
			_, err := m.flow.Connect(ctx)
			return err
		})
	case key.Matches(msg, m.keys.disconnect):
		if m.flow == nil || c.Provider() != models.ProviderSpotify {
			return m, nil
		}
		return m, m.run(c, "disconnect", func(ctx context.Context) error {
			defer c.Close()
			return m.flow.Disconnect(ctx)
		})
	}
	return m, nil
}

func (m *Model) handleSourceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = PlayerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		raw := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.view = PlayerView
		if raw == "" {
			return m, nil
		}
		c := m.current()
		return m, m.run(c, "play", func(ctx context.Context) error { return c.Play(ctx, raw) })
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCuratedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.curated.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.curated, cmd = m.curated.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlayerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.curated.SelectedItem().(curatedItem)
		if !ok {
			return m, nil
		}
		m.view = PlayerView
		c := m.current()
		return m, m.run(c, "play "+string(item), func(ctx context.Context) error { return c.Play(ctx, string(item)) })
	}

	var cmd tea.Cmd
	m.curated, cmd = m.curated.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SourceView:
		m.input, cmd = m.input.Update(msg)
	case CuratedView:
		m.curated, cmd = m.curated.Update(msg)
	}
	return m, cmd
}

func (m *Model) changeVolume(c player.Controller, delta int) tea.Cmd {
	vol := min(max(m.snapshots[c.Provider()].Volume+delta, 0), 100)
	return m.run(c, fmt.Sprintf("volume %d%%", vol), func(ctx context.Context) error {
		return c.SetVolume(ctx, vol)
	})
}

// run executes fn off the update loop and reports the outcome as [MsgCommandDone].
func (m *Model) run(c player.Controller, action string, fn func(context.Context) error) tea.Cmd {
	provider := c.Provider()
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg(provider, action, fn(ctx))
	}
}

func (m *Model) waitForSnapshot(p models.Provider) tea.Cmd {
	sub, ok := m.subs[p]
	if !ok {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-sub.ch
		if !ok {
			return subscriptionClosedMsg(p)
		}
		return snapshotMsg(s)
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(m.controllers))
	for i, c := range m.controllers {
		name := string(c.Provider())
		if i == m.selected {
			tabs[i] = styles.active.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderPlayer() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("fitplay"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	c := m.current()
	if c == nil {
		b.WriteString(styles.help.Render("No players configured"))
		return b.String()
	}

	s := m.snapshots[c.Provider()]
	fmt.Fprintf(&b, "Status: %s\n", styles.status(s.Status).Render(s.Status.String()))

	if s.Track != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.ok.Render(s.Track.Name))
		if s.Track.Artist != "" {
			fmt.Fprintf(&b, "%s\n", s.Track.Artist)
		}
		if s.Track.DurationMS > 0 {
			fmt.Fprintf(&b, "%s / %s\n", formatDuration(s.Track.PositionMS), formatDuration(s.Track.DurationMS))
		}
	} else if s.Source != nil {
		fmt.Fprintf(&b, "\n%s %s\n", s.Source.Kind, s.Source.ID)
	}

	if s.Muted {
		fmt.Fprintf(&b, "\nVolume: %s\n", styles.warn.Render("muted"))
	} else {
		fmt.Fprintf(&b, "\nVolume: %d%%\n", s.Volume)
	}

	if s.Error != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(fmt.Sprintf("Error (%s): %s", s.Error.Category, s.Error.Message)))
		if hint := actionHint(c.Provider(), s.Error.Action); hint != "" {
			fmt.Fprintf(&b, "%s\n", styles.help.Render(hint))
		}
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(m.err.Error()))
	} else if m.notice != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.help.Render(m.notice))
	}

	fmt.Fprintf(&b, "\n%s", m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderSource() string {
	title := styles.title.Render(fmt.Sprintf("Play on %s", m.current().Provider()))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderCurated() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n\n%s", m.curated.View(), helpView)
}

func actionHint(p models.Provider, action string) string {
	switch action {
	case "retry":
		return "Press space to retry"
	case "connect":
		if p == models.ProviderSpotify {
			return "Press c to connect"
		}
	case "choose_other":
		return "Press o to choose something else"
	}
	return ""
}

func formatDuration(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
