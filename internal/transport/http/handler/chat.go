package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/transport/http/response"
)

type ChatHandler struct {
	chat *app.ChatService
}

type SelectRequest struct {
	Document string `json:"document" binding:"required"`
}

type AskRequest struct {
	Message string `json:"message"`
}

type SuggestRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewChatHandler(chat *app.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Select(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chat.Select(sess, req.Document); err != nil {
		writeError(c, err, "select document failed")
		return
	}
	response.OK(c, gin.H{
		"selected_document": sess.SelectedDocument,
		"mode":              sess.Mode,
		"suggestions":       h.chat.Suggestions(sess),
	})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, h.chat.History(sess))
}

func (h *ChatHandler) Ask(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chat.Ask(c.Request.Context(), sess, req.Message, nil)
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

// Stream answers over server-sent events: one "data:" frame per fragment,
// then "event: done" carrying the turn result. Precondition failures are
// reported as a plain JSON error before the stream starts.
func (h *ChatHandler) Stream(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	result, err := h.chat.Ask(c.Request.Context(), sess, req.Message, func(fragment, _ string) error {
		start()
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(fragment) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			writeError(c, err, "send message failed")
			return
		}
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %s\n\n", sanitizeSSE(err.Error())))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	start()
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{}`)
	}
	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + string(payload) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) Suggestions(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, h.chat.Suggestions(sess))
}

// AskSuggestion records the picked suggestion and asks it right away.
func (h *ChatHandler) AskSuggestion(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chat.Suggest(sess, req.Question); err != nil {
		writeError(c, err, "pick suggestion failed")
		return
	}
	result, err := h.chat.AskSuggested(c.Request.Context(), sess, nil)
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) Export(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "md" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "format must be json or md")
		return
	}

	now := time.Now()
	exp, ok, err := app.ExportHistory(sess, now)
	if err != nil {
		writeError(c, err, "export chat failed")
		return
	}
	if !ok {
		writeError(c, app.ErrNothingToExport, "")
		return
	}

	if format == "md" {
		attachment(c, app.ExportFileName(now, "md"), "text/markdown; charset=utf-8", exp.Markdown)
		return
	}
	attachment(c, app.ExportFileName(now, "json"), "application/json; charset=utf-8", exp.JSON)
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
