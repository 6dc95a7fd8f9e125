package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/secretary"
	bt "github.com/fwojciec/secretary/bubbletea"
	"github.com/fwojciec/secretary/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	m := newModel(echo("ok"))
	assert.False(t, m.Sending())
	assert.NoError(t, m.Err())
	assert.Equal(t, "Загрузка...", m.View())
}

func TestModel_WindowSize(t *testing.T) {
	t.Parallel()
	m := initModel(t, newModel(echo("ok")))
	assert.Equal(t, 80, m.Viewport.Width)
	assert.Equal(t, 20, m.Viewport.Height)

	m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.Viewport.Width)
	assert.Equal(t, 36, m.Viewport.Height)
	assert.NotEmpty(t, m.View())
}

func TestModel_LoadsHistory(t *testing.T) {
	t.Parallel()
	s := newSession()
	h := &fakeHistory{msgs: map[string][]secretary.Message{
		s.current: {
			{Role: secretary.RoleUser, Content: "Когда планёрка?"},
			{Role: secretary.RoleAssistant, Content: "Завтра в **10:00**.", Intent: secretary.IntentScheduling},
		},
	}}
	m := initModel(t, bt.New(echo("ok"), s, h))

	content := bt.RenderContent(m)
	assert.Contains(t, content, "> Когда планёрка?")
	assert.Contains(t, content, "[scheduling]")
	assert.Contains(t, content, "Завтра в 10:00.")
}

func TestModel_Send(t *testing.T) {
	t.Parallel()
	m := initModel(t, newModel(echo("Здравствуйте! Чем помочь?")))

	m, cmd := submit(t, m, "  Привет  ")
	require.NotNil(t, cmd)
	assert.True(t, m.Sending())
	assert.Empty(t, m.Input.Value())
	assert.Contains(t, bt.RenderContent(m), "> Привет")
	assert.Contains(t, bt.StatusLine(m), "Генерирую ответ...")

	// Enter is ignored while a send is outstanding.
	_, again := submit(t, m, "ещё")
	assert.Nil(t, again)

	msg := cmd()
	reply, ok := msg.(bt.ReplyMsg)
	require.True(t, ok)
	m = updateModel(t, m, reply)
	assert.False(t, m.Sending())
	content := bt.RenderContent(m)
	assert.Contains(t, content, "[general]")
	assert.Contains(t, content, "Здравствуйте! Чем помочь?")
}

func TestModel_EmptyInput(t *testing.T) {
	t.Parallel()
	m := initModel(t, newModel(echo("ok")))
	m, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.Sending())
}

func TestModel_Replies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     bt.ReplyMsg
		want    string
		wantErr bool
	}{
		{
			name:    "error",
			msg:     bt.ReplyMsg{Err: errors.New("сеть недоступна")},
			want:    "Ошибка: сеть недоступна",
			wantErr: true,
		},
		{
			name: "discarded",
			msg:  bt.ReplyMsg{Reply: chat.Reply{Discarded: true, Assistant: secretary.Message{Content: "старый ответ"}}},
			want: "Ответ отброшен",
		},
		{
			name: "persistence warning",
			msg: bt.ReplyMsg{Reply: chat.Reply{
				Assistant: secretary.Message{Content: "готово"},
				Warning:   &secretary.PersistenceWarning{Key: secretary.KeyChatHistory, Err: errors.New("disk full")},
			}},
			want: "История не сохранена",
		},
		{
			name: "cancelled",
			msg:  bt.ReplyMsg{Err: context.Canceled},
			want: "Отправка отменена",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := initModel(t, newModel(echo("ok")))
			m = updateModel(t, m, tt.msg)
			assert.Contains(t, bt.RenderContent(m), tt.want)
			if tt.wantErr {
				assert.Error(t, m.Err())
			} else {
				assert.NoError(t, m.Err())
			}
		})
	}
	t.Run("discarded reply is not shown", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newModel(echo("ok")))
		m = updateModel(t, m, bt.ReplyMsg{Reply: chat.Reply{Discarded: true, Assistant: secretary.Message{Content: "старый ответ"}}})
		assert.NotContains(t, bt.RenderContent(m), "старый ответ")
	})
}

func TestModel_CtrlC(t *testing.T) {
	t.Parallel()

	t.Run("idle quits", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newModel(echo("ok")))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		_, isQuit := cmd().(tea.QuitMsg)
		assert.True(t, isQuit)
	})

	t.Run("sending cancels the send", func(t *testing.T) {
		t.Parallel()
		blocking := &fakeChat{send: func(ctx context.Context, _ string) (chat.Reply, error) {
			<-ctx.Done()
			return chat.Reply{}, ctx.Err()
		}}
		m := initModel(t, newModel(blocking))
		m, cmd := submit(t, m, "долгий запрос")
		require.NotNil(t, cmd)

		updated, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, quit)
		m = updated.(bt.Model)

		m = updateModel(t, m, cmd())
		assert.False(t, m.Sending())
		assert.NoError(t, m.Err())
		assert.Contains(t, bt.RenderContent(m), "Отправка отменена")
	})
}

func TestModel_Commands(t *testing.T) {
	t.Parallel()

	t.Run("new conversation", func(t *testing.T) {
		t.Parallel()
		s := newSession()
		m := initModel(t, bt.New(echo("ok"), s, &fakeHistory{}))
		m, cmd := submit(t, m, bt.CommandNew)
		require.NotNil(t, cmd)
		assert.False(t, m.Sending())

		msg, ok := cmd().(bt.ConversationMsg)
		require.True(t, ok)
		assert.Equal(t, "fedcba9876543210", msg.ID)
		m = updateModel(t, m, msg)
		assert.Contains(t, bt.RenderContent(m), "Новый разговор")
		assert.Contains(t, bt.StatusLine(m), "fedcba98…")
	})

	t.Run("clear conversation", func(t *testing.T) {
		t.Parallel()
		s := newSession()
		h := &fakeHistory{msgs: map[string][]secretary.Message{
			s.current: {{Role: secretary.RoleUser, Content: "старое сообщение"}},
		}}
		m := initModel(t, bt.New(echo("ok"), s, h))
		require.Contains(t, bt.RenderContent(m), "старое сообщение")

		m, cmd := submit(t, m, bt.CommandClear)
		require.NotNil(t, cmd)
		m = updateModel(t, m, cmd())
		assert.Equal(t, []string{s.current}, h.cleared)
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Разговор очищен")
		assert.NotContains(t, content, "старое сообщение")
	})

	t.Run("command failure is reported", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newModel(echo("ok")))
		m = updateModel(t, m, bt.ConversationMsg{Err: secretary.ErrAuthentication})
		require.ErrorIs(t, m.Err(), secretary.ErrAuthentication)
		assert.Contains(t, bt.StatusLine(m), "Ошибка")
	})
}

func TestModel_StatusLine(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		line := bt.StatusLine(initModel(t, newModel(echo("ok"))))
		assert.Contains(t, line, "Анна")
		assert.Contains(t, line, "01234567…")
		assert.NotContains(t, line, "0123456789abcdef")
		assert.Contains(t, line, "готов")
		assert.Contains(t, line, "/new")
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newModel(echo("ok"), bt.WithReady(func() bool { return false })))
		assert.Contains(t, bt.StatusLine(m), "не настроен")
	})

	t.Run("narrow terminal drops help", func(t *testing.T) {
		t.Parallel()
		m := updateModel(t, newModel(echo("ok")), tea.WindowSizeMsg{Width: 30, Height: 10})
		line := bt.StatusLine(m)
		assert.Contains(t, line, "готов")
		assert.NotContains(t, line, "/new")
	})

	t.Run("signed out shows guest", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, bt.New(echo("ok"), &fakeSession{}, &fakeHistory{}))
		assert.Contains(t, bt.StatusLine(m), "гость")
	})
}

func TestModel_Program(t *testing.T) {
	t.Parallel()
	m := newModel(echo("Добрый день!"))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.Type("привет")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Добрый день!")) &&
			bytes.Contains(out, []byte("готов"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(bt.Model)
	require.True(t, ok)
	assert.False(t, final.Sending())
	assert.NoError(t, final.Err())
}
