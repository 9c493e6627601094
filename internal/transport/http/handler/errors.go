package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/session"
	"docqa-assistant/internal/transport/http/middleware"
	"docqa-assistant/internal/transport/http/response"
)

// writeError maps service errors to the response envelope. Anything
// unrecognised is reported with the fallback message.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
	case errors.Is(err, app.ErrUnknownModel):
		response.Error(c, http.StatusBadRequest, response.CodeUnknownModel, err.Error())
	case errors.Is(err, app.ErrAPIKeyMissing):
		response.Error(c, http.StatusPreconditionFailed, response.CodeAPIKeyMissing, err.Error())
	case errors.Is(err, app.ErrNoDocuments):
		response.Error(c, http.StatusPreconditionFailed, response.CodeNoDocuments, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrSummaryNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSummaryNotFound, err.Error())
	case errors.Is(err, app.ErrNothingToExport):
		response.Error(c, http.StatusNotFound, response.CodeNothingToExport, err.Error())
	case errors.Is(err, app.ErrArchiveDisabled):
		response.Error(c, http.StatusNotFound, response.CodeArchiveDisabled, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func mustSession(c *gin.Context) (*session.Session, bool) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return nil, false
	}
	return sess, true
}

func attachment(c *gin.Context, filename, contentType string, body string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, []byte(body))
}

func isServiceError(err error) bool {
	for _, target := range []error{
		app.ErrInvalidInput,
		app.ErrMessageEmpty,
		app.ErrUnknownModel,
		app.ErrAPIKeyMissing,
		app.ErrNoDocuments,
		app.ErrDocumentNotFound,
		app.ErrSummaryNotFound,
		app.ErrNothingToExport,
		app.ErrArchiveDisabled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
