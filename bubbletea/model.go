package bubbletea

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/secretary"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Slash commands accepted in the input.
const (
	CommandNew   = "/new"
	CommandClear = "/clear"
)

// conversationIDWidth is the displayed width of the conversation id.
const conversationIDWidth = 9

const statusHelp = "Enter: отправить · /new · /clear · Ctrl+C: выход"

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	chat    Chat
	session Session
	history History
	ready   func() bool
	theme   secretary.Theme
	styles  Styles

	blocks  []MessageBlock
	sending bool
	cancel  context.CancelFunc
	err     error
	sized   bool
}

// Option configures a [Model].
type Option func(*Model)

// WithTheme sets the color theme.
func WithTheme(t secretary.Theme) Option {
	return func(m *Model) {
		m.theme = t
		m.styles = NewStyles(t)
	}
}

// WithReady reports backend readiness in the status line.
func WithReady(fn func() bool) Option {
	return func(m *Model) { m.ready = fn }
}

// New creates the TUI model.
func New(c Chat, s Session, h History, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Введите сообщение..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	theme := secretary.DefaultTheme()
	m := Model{
		Input:   ti,
		chat:    c,
		session: s,
		history: h,
		ready:   func() bool { return true },
		theme:   theme,
		styles:  NewStyles(theme),
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Sending returns whether a send is outstanding.
func (m Model) Sending() bool { return m.sending }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		m.sending = false
		m.cancel = nil
		m = m.handleReply(msg)
		m = m.refresh()
		return m, m.Input.Focus()

	case ConversationMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.blocks = []MessageBlock{NewNoticeBlock("Новый разговор", m.styles)}
		return m.refresh(), nil

	case ClearedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.blocks = []MessageBlock{NewNoticeBlock("Разговор очищен", m.styles)}
		return m.refresh(), nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.sending {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.sized {
		return "Загрузка..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	borderH := 2
	vpHeight := max(msg.Height-inputH-statusH-borderH, 1)

	if !m.sized {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.loadHistory()
		m.sized = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.sending {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		m.Input.SetValue("")
		switch text {
		case CommandNew:
			return m, newConversation(m.session)
		case CommandClear:
			return m, clearConversation(m.history, m.session.CurrentConversation())
		}
		return m.submit(text)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	// Character keys go to the input only; 'j'/'k' would otherwise scroll.
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	if !m.sending {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m = m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.sending = true
	m.Input.Blur()
	return m, send(ctx, m.chat, text)
}

func (m Model) handleReply(msg ReplyMsg) Model {
	if msg.Err != nil {
		if errors.Is(msg.Err, context.Canceled) {
			m.blocks = append(m.blocks, NewNoticeBlock("Отправка отменена", m.styles))
			return m
		}
		m.err = msg.Err
		m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		return m
	}
	r := msg.Reply
	if r.Discarded {
		m.blocks = append(m.blocks, NewNoticeBlock("Ответ отброшен: разговор сменился", m.styles))
		return m
	}
	m.blocks = append(m.blocks, NewAssistantBlock(r.Assistant.Content, r.Intent, m.theme, m.styles))
	if r.Warning != nil {
		m.blocks = append(m.blocks, NewNoticeBlock("История не сохранена: "+r.Warning.Error(), m.styles))
	}
	return m
}

// loadHistory creates blocks for the messages already in the current
// conversation.
func (m Model) loadHistory() Model {
	id := m.session.CurrentConversation()
	if id == "" {
		return m
	}
	for _, msg := range m.history.Query(id) {
		switch msg.Role {
		case secretary.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Content, m.styles))
		case secretary.RoleAssistant:
			m.blocks = append(m.blocks, NewAssistantBlock(msg.Content, msg.Intent, m.theme, m.styles))
		default:
			m.blocks = append(m.blocks, NewNoticeBlock(msg.Content, m.styles))
		}
	}
	return m
}

func (m Model) refresh() Model {
	if !m.sized {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(runewidth.Truncate("Ошибка: "+m.err.Error(), m.Viewport.Width, "…"))
	}
	if m.sending {
		return m.styles.Muted.Render("Генерирую ответ...")
	}
	user := "гость"
	if u := m.session.User(); u != nil {
		user = u.DisplayName
		if user == "" {
			user = u.Email
		}
	}
	conv := runewidth.Truncate(m.session.CurrentConversation(), conversationIDWidth, "…")
	readyText, readyStyle := "готов", m.styles.Success
	if !m.ready() {
		readyText, readyStyle = "не настроен", m.styles.Error
	}
	info := user + " · " + conv + " · "
	line := m.styles.Muted.Render(info) + readyStyle.Render(readyText)
	room := m.Viewport.Width - runewidth.StringWidth(info+readyText)
	if help := " · " + statusHelp; room >= runewidth.StringWidth(help) {
		line += m.styles.Muted.Render(help)
	}
	return line
}

func send(ctx context.Context, c Chat, text string) tea.Cmd {
	return func() tea.Msg {
		r, err := c.Send(ctx, text)
		return ReplyMsg{Reply: r, Err: err}
	}
}

func newConversation(s Session) tea.Cmd {
	return func() tea.Msg {
		id, err := s.NewConversation()
		return ConversationMsg{ID: id, Err: err}
	}
}

func clearConversation(h History, id string) tea.Cmd {
	return func() tea.Msg {
		if id == "" {
			return ClearedMsg{}
		}
		var w *secretary.PersistenceWarning
		err := h.Clear(id)
		if errors.As(err, &w) {
			err = nil
		}
		return ClearedMsg{Err: err}
	}
}
