package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harunnryd/payfone/pkg/animator"
	"github.com/harunnryd/payfone/pkg/call"
	"github.com/harunnryd/payfone/pkg/directory"
)

// CallEventMsg carries an orchestrator event into the update loop.
type CallEventMsg struct {
	Event call.Event
}

// FrameMsg asks for a redraw after an animation frame advanced.
type FrameMsg struct{}

// Model is the payphone front-end state.
type Model struct {
	orch     *call.Orchestrator
	dir      *directory.Directory
	dialAnim *animator.Animator
	bookAnim *animator.Animator

	width  int
	height int
	ready  bool

	input    textinput.Model
	viewport viewport.Model
	styles   Styles

	entries []directory.Persona
	cursor  int

	speaking bool
	quitting bool
}

func NewModel(orch *call.Orchestrator, dir *directory.Directory, dialAnim, bookAnim *animator.Animator) Model {
	ti := textinput.New()
	ti.Placeholder = "Say something..."
	ti.CharLimit = 500
	ti.Width = 48

	vp := viewport.New(48, 16)
	vp.SetContent("")

	return Model{
		orch:     orch,
		dir:      dir,
		dialAnim: dialAnim,
		bookAnim: bookAnim,
		input:    ti,
		viewport: vp,
		styles:   DefaultStyles(),
		entries:  dir.All(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.layout()

	case CallEventMsg:
		m = m.applyEvent(msg.Event)

	case FrameMsg:
		// Animation frame advanced; View reads the animators directly.
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	connected := m.orch.State() == call.StateConnected

	switch msg.String() {
	case "ctrl+c":
		m.orch.HangUp()
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.orch.HangUp()
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}

	if connected {
		return m.handleConnectedKey(msg)
	}
	return m.handleIdleKey(msg)
}

// handleConnectedKey routes typing to the chat input. A '*' on an empty
// input still reaches the handset, so the hang-up key keeps working
// mid-call.
func (m Model) handleConnectedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.orch.ChatStatus() != call.ChatReady {
			// A reply is still in flight; hold the input until it lands.
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if err := m.orch.Send(text); err == nil {
			m.input.SetValue("")
		}
		return m, nil
	case "*":
		if m.input.Value() == "" {
			m.orch.PressKey('*')
			return m, nil
		}
	}
	if !m.input.Focused() {
		m.input.Focus()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		m.orch.HangUp()
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if m.cursor < len(m.entries) {
			m.orch.SelectEntry(m.entries[m.cursor].Number)
		}
		return m, nil
	}
	if len(key) == 1 {
		r := rune(key[0])
		if (r >= '0' && r <= '9') || r == '*' || r == '#' {
			m.orch.PressKey(r)
		}
	}
	return m, nil
}

func (m Model) applyEvent(ev call.Event) Model {
	switch ev.Kind {
	case call.EventState:
		if ev.State == call.StateConnected.String() {
			m.input.Focus()
		} else if ev.State == call.StateIdle.String() {
			m.input.Blur()
			m.input.SetValue("")
			m.entries = m.dir.All()
		}
	case call.EventTranscript:
		m.viewport.SetContent(m.renderTranscript(ev.Transcript))
		m.viewport.GotoBottom()
	case call.EventSpeaking:
		m.speaking = ev.Speaking
	}
	return m
}

func (m Model) layout() Model {
	w := m.width/2 - 4
	if w < 30 {
		w = 30
	}
	h := m.height - 8
	if h < 8 {
		h = 8
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "warming up..."
	}

	header := m.styles.Header.Render("PAYFONE")
	left := m.renderPhonePane()
	right := m.renderRightPane()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	status := m.renderStatusBar()
	help := m.styles.Help.Render(m.helpLine())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, help)
}

func (m Model) renderPhonePane() string {
	state := m.orch.State()
	progress := animProgress(m.dialAnim)
	art := handsetArt(progress)

	var b strings.Builder
	b.WriteString(art)
	b.WriteString("\n\n")
	buf := m.orch.DialBuffer()
	if buf == "" {
		buf = "_"
	}
	b.WriteString("  " + m.styles.DialBuffer.Render(buf))
	if state == call.StateConnecting {
		b.WriteString("\n\n  " + m.styles.StatusWarn.Render("ring... ring..."))
	}
	if m.speaking {
		b.WriteString("\n\n  " + m.styles.StatusGood.Render("~ voice on the line ~"))
	}

	style := m.styles.Pane
	if state == call.StateDialing {
		style = m.styles.ActivePane
	}
	return style.Render(b.String())
}

func (m Model) renderRightPane() string {
	state := m.orch.State()
	if state == call.StateConnected || state == call.StateConnecting {
		return m.styles.ActivePane.Render(m.renderCallPane())
	}
	return m.styles.Pane.Render(m.renderBookPane())
}

func (m Model) renderCallPane() string {
	var b strings.Builder
	if p, ok := m.orch.Persona(); ok {
		b.WriteString(m.styles.Persona.Render(p.Label) + "  " + p.Number + "\n\n")
	}
	b.WriteString(m.viewport.View())
	if m.orch.State() == call.StateConnected {
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}
	return b.String()
}

func (m Model) renderBookPane() string {
	var b strings.Builder
	if m.bookAnim.Playing() {
		b.WriteString(bookArt(animProgress(m.bookAnim), len(m.entries)))
		return b.String()
	}
	b.WriteString("ADDRESS BOOK\n\n")
	if len(m.entries) == 0 {
		b.WriteString(m.styles.Pending.Render("(empty)"))
		return b.String()
	}
	for i, e := range m.entries {
		line := fmt.Sprintf("%-20s %s", e.Label, e.Number)
		if i == m.cursor {
			b.WriteString(m.styles.BookCursor.Render("> " + line))
		} else {
			b.WriteString(m.styles.BookEntry.Render("  " + line))
		}
		if i < len(m.entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) renderTranscript(msgs []call.Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		switch {
		case msg.Pending:
			b.WriteString(m.styles.Pending.Render(msg.Text))
		case msg.Role == call.RoleUser:
			b.WriteString(m.styles.Caller.Render("you: ") + msg.Text)
		default:
			b.WriteString(m.styles.Persona.Render("them: ") + msg.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	state := m.orch.State().String()
	chat := string(m.orch.ChatStatus())
	parts := []string{"state: " + state, "chat: " + chat}
	if m.speaking {
		parts = append(parts, "speaking")
	}
	return m.styles.StatusBar.Render(strings.Join(parts, "  |  "))
}

func (m Model) helpLine() string {
	if m.orch.State() == call.StateConnected {
		return "enter send · * hang up (empty input) · esc hang up · ctrl+c quit"
	}
	return "0-9 dial · # call · * clear · ↑/↓ book · enter call entry · q quit"
}

func animProgress(a *animator.Animator) float64 {
	if a == nil || a.Total() <= 1 {
		return 0
	}
	return float64(a.Frame()-1) / float64(a.Total()-1)
}
