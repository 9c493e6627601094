package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/session"
)

const exportTimeLayout = "2006-01-02T15:04:05.000000"

type exportMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type exportPayload struct {
	ExportDate       string          `json:"export_date"`
	SelectedDocument string          `json:"selected_document"`
	ChatMode         session.Mode    `json:"chat_mode"`
	ModelUsed        string          `json:"model_used"`
	TotalMessages    int             `json:"total_messages"`
	Messages         []exportMessage `json:"messages"`
}

// Export is a rendered transcript in both download formats.
type Export struct {
	JSON     string
	Markdown string
}

// ExportHistory renders the transcript without the system message. ok is
// false when there is nothing but the system message. Each message carries
// the time it was added to the transcript.
func ExportHistory(sess *session.Session, now time.Time) (*Export, bool, error) {
	history := sess.History()
	if len(history) == 0 {
		return nil, false, nil
	}

	payload := exportPayload{
		ExportDate:       now.Format(exportTimeLayout),
		SelectedDocument: sess.SelectedDocument,
		ChatMode:         sess.Mode,
		ModelUsed:        sess.GenerationModel,
		TotalMessages:    len(history),
		Messages:         make([]exportMessage, 0, len(history)),
	}
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		payload.Messages = append(payload.Messages, exportMessage{
			Type:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt.Format(exportTimeLayout),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return nil, false, fmt.Errorf("encode chat export failed: %w", err)
	}

	return &Export{
		JSON:     strings.TrimSuffix(buf.String(), "\n"),
		Markdown: renderMarkdown(payload),
	}, true, nil
}

func renderMarkdown(p exportPayload) string {
	lines := []string{
		"# Chat Export - " + p.ExportDate[:10],
		"",
		"**Document:** " + p.SelectedDocument,
		"**Mode:** " + string(p.ChatMode),
		"**Model:** " + p.ModelUsed,
		fmt.Sprintf("**Messages:** %d", p.TotalMessages),
		"",
		"---",
		"",
	}
	for _, m := range p.Messages {
		heading := "## Assistant"
		if m.Type == model.RoleUser {
			heading = "## User"
		}
		lines = append(lines, heading, m.Content, "")
	}
	return strings.Join(lines, "\n")
}

// ExportFileName is chat_export_YYYYMMDD_HHMM.<ext>.
func ExportFileName(now time.Time, ext string) string {
	return fmt.Sprintf("chat_export_%s.%s", now.Format("20060102_1504"), ext)
}
