package app

import (
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
)

// SessionInfo backs the sidebar metrics and configuration display.
type SessionInfo struct {
	SessionID        string       `json:"session_id"`
	CreatedAt        time.Time    `json:"created_at"`
	Messages         int          `json:"messages"`
	Documents        int          `json:"documents"`
	Summaries        int          `json:"summaries"`
	TotalChunks      int          `json:"total_chunks"`
	APIKeyConfigured bool         `json:"api_key_configured"`
	EmbeddingModel   string       `json:"embedding_model"`
	GenerationModel  string       `json:"generation_model"`
	SelectedDocument string       `json:"selected_document"`
	Mode             session.Mode `json:"mode"`
	// EmbeddingModelApplied is false when the provider ignores the choice.
	EmbeddingProvider     string `json:"embedding_provider"`
	EmbeddingModelApplied bool   `json:"embedding_model_applied"`
}

type ConfigUpdate struct {
	APIKey          *string
	EmbeddingModel  *string
	GenerationModel *string
}

type SettingsService struct {
	models            *ModelResolver
	embeddingProvider string
	logger            *zap.Logger
	now               func() time.Time
}

func NewSettingsService(models *ModelResolver, embeddingProvider string, logger *zap.Logger) *SettingsService {
	if embeddingProvider == "" {
		embeddingProvider = retrieval.EmbeddingProviderLocal
	}
	return &SettingsService{
		models:            models,
		embeddingProvider: embeddingProvider,
		logger:            logger,
		now:               time.Now,
	}
}

func (s *SettingsService) EmbeddingProvider() string {
	return s.embeddingProvider
}

// EmbeddingModelApplied reports whether the selected embedding model changes
// retrieval. The local provider only records it.
func (s *SettingsService) EmbeddingModelApplied() bool {
	return s.embeddingProvider != retrieval.EmbeddingProviderLocal
}

// SetAPIKey stores the key as given. It is not validated here; a bad key
// surfaces on the next chat API call. The key is also exported as
// GOOGLE_API_KEY for tooling that reads it from the environment; that variable
// is process-wide, so chat backends always take the key from the session.
func (s *SettingsService) SetAPIKey(sess *session.Session, key string) {
	key = strings.TrimSpace(key)
	if key == sess.APIKey {
		return
	}
	s.models.Invalidate(sess)
	sess.APIKey = key
	if key != "" {
		_ = os.Setenv("GOOGLE_API_KEY", key)
	}
	s.logger.Info("api key updated", zap.String("session_id", sess.ID), zap.Bool("configured", key != ""))
}

// SelectEmbeddingModel only affects documents processed afterwards.
func (s *SettingsService) SelectEmbeddingModel(sess *session.Session, name string) error {
	if _, ok := model.EmbeddingModelID(name); !ok {
		return ErrUnknownModel
	}
	sess.EmbeddingModel = name
	return nil
}

func (s *SettingsService) SelectGenerationModel(sess *session.Session, name string) error {
	if !model.IsGenerationModel(name) {
		return ErrUnknownModel
	}
	if name == sess.GenerationModel {
		return nil
	}
	s.models.Invalidate(sess)
	sess.GenerationModel = name
	return nil
}

// Apply validates every field before changing anything.
func (s *SettingsService) Apply(sess *session.Session, update ConfigUpdate) error {
	if update.EmbeddingModel != nil {
		if _, ok := model.EmbeddingModelID(*update.EmbeddingModel); !ok {
			return ErrUnknownModel
		}
	}
	if update.GenerationModel != nil && !model.IsGenerationModel(*update.GenerationModel) {
		return ErrUnknownModel
	}

	if update.APIKey != nil {
		s.SetAPIKey(sess, *update.APIKey)
	}
	if update.EmbeddingModel != nil {
		_ = s.SelectEmbeddingModel(sess, *update.EmbeddingModel)
	}
	if update.GenerationModel != nil {
		_ = s.SelectGenerationModel(sess, *update.GenerationModel)
	}
	return nil
}

func (s *SettingsService) ClearChat(sess *session.Session) {
	sess.ResetTranscript(s.now())
	sess.PendingQuestion = nil
}

func (s *SettingsService) ClearAll(sess *session.Session) {
	docs := len(sess.Documents)
	sess.ClearDocuments(s.now())
	runtime.GC()
	s.logger.Info("session data cleared", zap.String("session_id", sess.ID), zap.Int("documents", docs))
}

func (s *SettingsService) Info(sess *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:        sess.ID,
		CreatedAt:        sess.CreatedAt,
		Messages:         len(sess.Messages) - 1,
		Documents:        len(sess.Documents),
		Summaries:        len(sess.Summaries),
		TotalChunks:      sess.TotalChunks(),
		APIKeyConfigured: sess.APIKey != "",
		EmbeddingModel:   sess.EmbeddingModel,
		GenerationModel:  sess.GenerationModel,
		SelectedDocument: sess.SelectedDocument,
		Mode:             sess.Mode,

		EmbeddingProvider:     s.embeddingProvider,
		EmbeddingModelApplied: s.EmbeddingModelApplied(),
	}
}
