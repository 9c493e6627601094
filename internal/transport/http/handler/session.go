package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docqa-assistant/internal/app"
	"docqa-assistant/internal/model"
	"docqa-assistant/internal/pkg/jwtutil"
	"docqa-assistant/internal/session"
	"docqa-assistant/internal/transport/http/response"
)

type SessionHandler struct {
	store         *session.Store
	settings      *app.SettingsService
	secret        string
	defaultAPIKey string
	logger        *zap.Logger
}

type UpdateConfigRequest struct {
	APIKey          *string `json:"api_key"`
	EmbeddingModel  *string `json:"embedding_model"`
	GenerationModel *string `json:"generation_model"`
}

// CreateSessionResponse reports the idle TTL; the token itself has no expiry
// and stays usable for as long as the session is touched within that window.
type CreateSessionResponse struct {
	SessionID      string `json:"session_id"`
	Token          string `json:"token"`
	IdleTTLSeconds int64  `json:"idle_ttl_seconds"`
}

// NewSessionHandler pre-fills new sessions with defaultAPIKey when set.
func NewSessionHandler(store *session.Store, settings *app.SettingsService, secret, defaultAPIKey string, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:         store,
		settings:      settings,
		secret:        secret,
		defaultAPIKey: defaultAPIKey,
		logger:        logger,
	}
}

func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.store.Create(time.Now())
	if h.defaultAPIKey != "" {
		sess.Lock()
		h.settings.SetAPIKey(sess, h.defaultAPIKey)
		sess.Unlock()
	}

	token, err := jwtutil.GenerateToken(h.secret, sess.ID)
	if err != nil {
		h.store.Delete(sess.ID)
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		return
	}
	h.logger.Info("session created", zap.String("session_id", sess.ID), zap.Int("live_sessions", h.store.Count()))

	response.OK(c, CreateSessionResponse{
		SessionID:      sess.ID,
		Token:          token,
		IdleTTLSeconds: int64(h.store.TTL() / time.Second),
	})
}

func (h *SessionHandler) Info(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	response.OK(c, h.settings.Info(sess))
}

func (h *SessionHandler) UpdateConfig(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.settings.Apply(sess, app.ConfigUpdate{
		APIKey:          req.APIKey,
		EmbeddingModel:  req.EmbeddingModel,
		GenerationModel: req.GenerationModel,
	}); err != nil {
		writeError(c, err, "update config failed")
		return
	}
	response.OK(c, h.settings.Info(sess))
}

func (h *SessionHandler) Options(c *gin.Context) {
	response.OK(c, gin.H{
		"embedding_models":        model.EmbeddingModelOptions,
		"generation_models":       model.GenerationModelOptions,
		"supported_formats":       model.SupportedFormats,
		"embedding_provider":      h.settings.EmbeddingProvider(),
		"embedding_model_applied": h.settings.EmbeddingModelApplied(),
	})
}

func (h *SessionHandler) ClearChat(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	h.settings.ClearChat(sess)
	response.OK(c, h.settings.Info(sess))
}

func (h *SessionHandler) ClearAll(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	h.settings.ClearAll(sess)
	response.OK(c, h.settings.Info(sess))
}
