package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/ingest"
	"docqa-assistant/internal/transport/http/response"
)

type DocumentHandler struct {
	documents   *app.DocumentService
	maxUploadMB int
}

func NewDocumentHandler(documents *app.DocumentService, maxUploadMB int) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxUploadMB: maxUploadMB}
}

// Upload accepts a multipart form with one or more "files" parts and
// processes them in order.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	if h.maxUploadMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.maxUploadMB)<<20)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge,
				fmt.Sprintf("upload exceeds %d MB", h.maxUploadMB))
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files uploaded")
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed: "+fh.Filename)
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Size: fh.Size, Data: data})
	}

	report, err := h.documents.Process(c.Request.Context(), sess, files)
	if err != nil {
		writeError(c, err, "process documents failed")
		return
	}
	response.OK(c, gin.H{
		"report":    report,
		"documents": h.documents.List(sess),
	})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *DocumentHandler) List(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, h.documents.List(sess))
}

func (h *DocumentHandler) Remove(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if err := h.documents.Remove(sess, name); err != nil {
		writeError(c, err, "remove document failed")
		return
	}
	response.OK(c, gin.H{"removed": name, "documents": h.documents.List(sess)})
}
