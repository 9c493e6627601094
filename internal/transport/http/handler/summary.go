package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/transport/http/response"
)

type SummaryHandler struct {
	summaries *app.SummaryService
}

func NewSummaryHandler(summaries *app.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

func (h *SummaryHandler) List(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, h.summaries.List(sess))
}

// Generating is routed outside the turn lock so it answers while a
// summary request of the same session is still running.
func (h *SummaryHandler) Generating(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"generating": h.summaries.Generating(sess)})
}

// GenerateMissing summarizes every document without a summary, one at a time.
func (h *SummaryHandler) GenerateMissing(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	report, err := h.summaries.GenerateMissing(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err, "generate summaries failed")
		return
	}
	response.OK(c, gin.H{
		"report":  report,
		"listing": h.summaries.List(sess),
	})
}

func (h *SummaryHandler) Generate(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	summary, err := h.summaries.Generate(c.Request.Context(), sess, c.Param("name"))
	if err != nil {
		switch {
		case isServiceError(err):
			writeError(c, err, "")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		}
		return
	}
	response.OK(c, summary)
}

func (h *SummaryHandler) View(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	summary, err := h.summaries.View(sess, c.Param("name"))
	if err != nil {
		writeError(c, err, "view summary failed")
		return
	}
	response.OK(c, summary)
}

func (h *SummaryHandler) CloseView(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	h.summaries.CloseView(sess)
	response.OK(c, h.summaries.List(sess))
}

func (h *SummaryHandler) Download(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	filename, content, err := h.summaries.Download(sess, c.Param("name"))
	if err != nil {
		writeError(c, err, "download summary failed")
		return
	}
	attachment(c, filename, "text/markdown; charset=utf-8", content)
}

func (h *SummaryHandler) Delete(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.summaries.Delete(sess, c.Param("name")); err != nil {
		writeError(c, err, "delete summary failed")
		return
	}
	response.OK(c, h.summaries.List(sess))
}
