package gin

import (
	"fmt"
	"net/http"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/gomarkdown"
	secjson "github.com/fwojciec/secretary/json"
	"github.com/gin-gonic/gin"
)

func (s *Server) signIn(c *gin.Context) {
	id, err := s.session.SignIn(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{Token: s.tokens.Token(), User: identityOf(&id)})
}

func (s *Server) refresh(c *gin.Context) {
	token, err := s.tokens.Refresh()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{Token: token, User: identityOf(s.session.User())})
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.session.SignOut(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{
		State:        s.session.State().String(),
		User:         identityOf(s.session.User()),
		Conversation: s.session.CurrentConversation(),
	})
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("invalid chat request: %w", secretary.ErrValidation))
		return
	}
	reply, err := s.chat.Send(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, replyOf(reply))
}

func (s *Server) listConversations(c *gin.Context) {
	all := s.history.AllConversations()
	out := make([]summaryDTO, len(all))
	for i, cs := range all {
		out[i] = summaryDTO{
			ID:            cs.ID,
			MessageCount:  cs.MessageCount,
			LastMessage:   messageOf(cs.LastMessage),
			LastMessageAt: cs.LastMessageAt(),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createConversation(c *gin.Context) {
	id, err := s.session.NewConversation()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) switchConversation(c *gin.Context) {
	if err := s.session.SwitchConversation(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireConversation writes 404 and returns false for unknown ids.
func (s *Server) requireConversation(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !s.history.Has(id) {
		s.fail(c, fmt.Errorf("conversation %q: %w", id, secretary.ErrNotFound))
		return "", false
	}
	return id, true
}

func (s *Server) getConversation(c *gin.Context) {
	id, ok := s.requireConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, messagesOf(s.history.Query(id)))
}

func (s *Server) clearConversation(c *gin.Context) {
	id, ok := s.requireConversation(c)
	if !ok {
		return
	}
	s.respondCleared(c, s.history.Clear(id))
}

func (s *Server) clearAll(c *gin.Context) {
	s.respondCleared(c, s.history.ClearAll())
}

func (s *Server) respondCleared(c *gin.Context, err error) {
	text, ok := warning(err)
	if !ok {
		s.fail(c, err)
		return
	}
	if text != "" {
		c.JSON(http.StatusOK, gin.H{"warning": text})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportConversation(c *gin.Context) {
	id, ok := s.requireConversation(c)
	if !ok {
		return
	}
	e := s.history.Export(id)
	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		data, err := secjson.MarshalExport(e)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.Filename()))
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	case "html":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", gomarkdown.Filename(e)))
		c.Data(http.StatusOK, "text/html; charset=utf-8", gomarkdown.RenderHTML(e))
	default:
		s.fail(c, fmt.Errorf("unknown export format %q: %w", format, secretary.ErrValidation))
	}
}

func (s *Server) sentiment(c *gin.Context) {
	id, ok := s.requireConversation(c)
	if !ok {
		return
	}
	st := s.history.Sentiment(id)
	c.JSON(http.StatusOK, sentimentResponse{Sentiment: string(st.Label), Score: st.Score})
}

func (s *Server) search(c *gin.Context) {
	results := s.history.Search(c.Query("q"), c.Query("conversation"))
	c.JSON(http.StatusOK, messagesOf(results))
}

func (s *Server) stats(c *gin.Context) {
	st := s.history.Statistics()
	c.JSON(http.StatusOK, statsResponse{
		TotalMessages:          st.TotalMessages,
		UserMessages:           st.UserMessages,
		AssistantMessages:      st.AssistantMessages,
		Conversations:          st.Conversations,
		AveragePerConversation: st.AveragePerConversation,
		LastActivity:           st.LastActivity,
	})
}

func (s *Server) sendMail(c *gin.Context) {
	if s.mailer == nil {
		s.fail(c, fmt.Errorf("mail: %w", secretary.ErrNotConfigured))
		return
	}
	var req mailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("invalid mail request: %w", secretary.ErrValidation))
		return
	}
	err := s.mailer.SendMessage(c.Request.Context(), secretary.Mail{To: req.To, Subject: req.Subject, Body: req.Body})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
