package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/transport/http/response"
)

type ArchiveHandler struct {
	archive *app.ArchiveService
}

func NewArchiveHandler(archive *app.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

func (h *ArchiveHandler) List(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	turns, err := h.archive.List(c.Request.Context(), sess.ID, limit)
	if err != nil {
		writeError(c, err, "list archived turns failed")
		return
	}
	response.OK(c, turns)
}
