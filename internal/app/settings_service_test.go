package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
)

func newSettingsService() (*SettingsService, *fakeModelCache) {
	resolver, cache := newResolver(&fakeModel{})
	svc := NewSettingsService(resolver, "", zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, cache
}

func TestSetAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	svc, cache := newSettingsService()
	sess := newTestSession(t)
	sess.APIKey = ""

	svc.SetAPIKey(sess, "  first-key ")
	assert.Equal(t, "first-key", sess.APIKey)
	assert.Equal(t, "first-key", os.Getenv("GOOGLE_API_KEY"))
	assert.Empty(t, cache.invalidated)

	svc.SetAPIKey(sess, "second-key")
	require.Len(t, cache.invalidated, 1)
	assert.Equal(t, "first-key", cache.invalidated[0].APIKey)
	assert.Equal(t, model.DefaultGenerationModel, cache.invalidated[0].Model)

	svc.SetAPIKey(sess, "second-key")
	assert.Len(t, cache.invalidated, 1)
}

func TestChatConfigUsesSessionKeyNotEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	svc, _ := newSettingsService()
	first := session.New("sess-a", fixedNow)
	second := session.New("sess-b", fixedNow)

	svc.SetAPIKey(first, "key-a")
	svc.SetAPIKey(second, "key-b")
	assert.Equal(t, "key-b", os.Getenv("GOOGLE_API_KEY"))

	assert.Equal(t, "key-a", svc.models.ConfigFor(first).APIKey)
	assert.Equal(t, "key-b", svc.models.ConfigFor(second).APIKey)
}

func TestInfoReportsWhetherEmbeddingModelIsApplied(t *testing.T) {
	resolver, _ := newResolver(&fakeModel{})
	cases := map[string]struct {
		provider     string
		wantProvider string
		wantApplied  bool
	}{
		"default is local": {provider: "", wantProvider: retrieval.EmbeddingProviderLocal},
		"local":            {provider: retrieval.EmbeddingProviderLocal, wantProvider: retrieval.EmbeddingProviderLocal},
		"remote":           {provider: retrieval.EmbeddingProviderRemote, wantProvider: retrieval.EmbeddingProviderRemote, wantApplied: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewSettingsService(resolver, tc.provider, zap.NewNop())
			sess := newTestSession(t)
			require.NoError(t, svc.SelectEmbeddingModel(sess, "all-mpnet-base-v2"))

			info := svc.Info(sess)
			assert.Equal(t, "all-mpnet-base-v2", info.EmbeddingModel)
			assert.Equal(t, tc.wantProvider, info.EmbeddingProvider)
			assert.Equal(t, tc.wantApplied, info.EmbeddingModelApplied)
			assert.Equal(t, tc.wantApplied, svc.EmbeddingModelApplied())
		})
	}
}

func TestSelectModels(t *testing.T) {
	svc, cache := newSettingsService()
	sess := newTestSession(t)

	assert.ErrorIs(t, svc.SelectGenerationModel(sess, "gpt-unknown"), ErrUnknownModel)
	assert.ErrorIs(t, svc.SelectEmbeddingModel(sess, "bert"), ErrUnknownModel)

	require.NoError(t, svc.SelectGenerationModel(sess, "gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-pro", sess.GenerationModel)
	require.Len(t, cache.invalidated, 1)
	assert.Equal(t, model.DefaultGenerationModel, cache.invalidated[0].Model)

	require.NoError(t, svc.SelectEmbeddingModel(sess, "all-mpnet-base-v2"))
	assert.Equal(t, "all-mpnet-base-v2", sess.EmbeddingModel)
}

func TestApplyValidatesBeforeChanging(t *testing.T) {
	svc, _ := newSettingsService()
	sess := newTestSession(t)
	key := "new-key"
	badEmbedding := "nope"
	goodModel := "gemini-1.5-pro"

	err := svc.Apply(sess, ConfigUpdate{APIKey: &key, EmbeddingModel: &badEmbedding, GenerationModel: &goodModel})
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, "test-key", sess.APIKey)
	assert.Equal(t, model.DefaultGenerationModel, sess.GenerationModel)

	t.Setenv("GOOGLE_API_KEY", "")
	require.NoError(t, svc.Apply(sess, ConfigUpdate{APIKey: &key, GenerationModel: &goodModel}))
	assert.Equal(t, "new-key", sess.APIKey)
	assert.Equal(t, goodModel, sess.GenerationModel)
}

func TestClearChatAndClearAll(t *testing.T) {
	svc, _ := newSettingsService()
	sess := newTestSession(t)
	addDocument(sess, "a.txt", "txt", &fakeRetriever{chunks: chunks("x", "y")})
	sess.Summaries["a.txt"] = model.DocumentSummary{Content: "s"}
	sess.Select("a.txt")
	sess.Append(model.RoleUser, "hi", fixedNow)
	sess.Append(model.RoleAssistant, "hello", fixedNow)

	info := svc.Info(sess)
	assert.Equal(t, 2, info.Messages)
	assert.Equal(t, 1, info.Documents)
	assert.Equal(t, 1, info.Summaries)
	assert.Equal(t, 2, info.TotalChunks)
	assert.True(t, info.APIKeyConfigured)
	assert.Equal(t, session.ModeSingle, info.Mode)

	svc.ClearChat(sess)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, session.DefaultSystemMessage, sess.Messages[0].Content)
	assert.True(t, sess.HasDocument("a.txt"))

	svc.ClearAll(sess)
	assert.Empty(t, sess.Documents)
	assert.Empty(t, sess.Retrievers)
	assert.Empty(t, sess.Summaries)
	assert.Equal(t, model.AllDocuments, sess.SelectedDocument)
	assert.Equal(t, session.ModeMulti, sess.Mode)
	assert.Equal(t, "test-key", sess.APIKey)
	assert.Len(t, sess.Messages, 1)
}
