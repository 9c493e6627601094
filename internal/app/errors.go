package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMessageEmpty     = errors.New("please type a message before sending")
	ErrAPIKeyMissing    = errors.New("please enter your Google Gemini API key first")
	ErrNoDocuments      = errors.New("no documents available, please process documents first")
	ErrDocumentNotFound = errors.New("document not found")
	ErrSummaryNotFound  = errors.New("summary not found")
	ErrUnknownModel     = errors.New("unknown model")
	ErrSessionNotFound  = errors.New("session not found")
	ErrArchiveDisabled  = errors.New("transcript archive is disabled")
	ErrNothingToExport  = errors.New("no chat history to export")
)
