package response

import "github.com/gin-gonic/gin"

const (
	CodeOK               = 0
	CodeBadRequest       = 40000
	CodeMessageEmpty     = 40001
	CodeUnknownModel     = 40002
	CodeUnauthorized     = 40100
	CodeSessionExpired   = 40101
	CodeNotFound         = 40400
	CodeDocumentNotFound = 40401
	CodeSummaryNotFound  = 40402
	CodeNothingToExport  = 40403
	CodeArchiveDisabled  = 40404
	CodeAPIKeyMissing    = 41201
	CodeNoDocuments      = 41202
	CodeTooLarge         = 41300
	CodeInternalServer   = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
