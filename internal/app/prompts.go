package app

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"docqa-assistant/internal/model"
)

var singleDocumentPrompt = prompts.PromptTemplate{
	Template: `You are answering questions based on a specific document. Here is the relevant content from the document:

{{.context}}{{.summary_context}}

Question: {{.question}}

Instructions:
- Answer based on the provided content from the selected document
- Use both the document excerpts and summary (if available) to provide comprehensive answers
- If the answer isn't in the document content provided, clearly state you don't know
- Be specific and detailed in your response
- Reference specific sections or parts when relevant`,
	InputVariables: []string{"context", "summary_context", "question"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

var multiDocumentPrompt = prompts.PromptTemplate{
	Template: `You have access to content from multiple documents. Based on the following document content:

{{.context}}

Question: {{.question}}

Instructions:
- Answer based on the provided document content from ALL available sources
- ALWAYS mention which specific document(s) contain the relevant information
- If information comes from multiple documents, clearly indicate each source
- If the information spans multiple documents, synthesize appropriately while citing sources
- If the answer isn't in any of the documents, clearly state you don't know
- When possible, compare or contrast information across different documents`,
	InputVariables: []string{"context", "question"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

var summaryPrompt = prompts.PromptTemplate{
	Template: `Please provide a comprehensive summary of this document: {{.document}}

Content to summarize:
{{.content}}

Please provide a summary that includes:
1. **Main Topic/Purpose**: What is this document about?
2. **Key Points**: Most important points or findings
3. **Structure**: How is the content organized?
4. **Important Details**: Notable data, dates, names, or statistics
5. **Conclusions**: Main outcomes or recommendations (if any)

Keep the summary concise but comprehensive (aim for 200-400 words).`,
	InputVariables: []string{"document", "content"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

func buildSinglePrompt(context, summary, question string) (string, error) {
	summaryContext := ""
	if summary != "" {
		summaryContext = "\n\nDocument Summary:\n" + summary + "\n"
	}
	return singleDocumentPrompt.Format(map[string]any{
		"context":         context,
		"summary_context": summaryContext,
		"question":        question,
	})
}

func buildMultiPrompt(context, question string) (string, error) {
	return multiDocumentPrompt.Format(map[string]any{
		"context":  context,
		"question": question,
	})
}

func buildSummaryPrompt(document, content string) (string, error) {
	return summaryPrompt.Format(map[string]any{
		"document": document,
		"content":  content,
	})
}

// formatSingleDocument lists excerpts under one document header.
func formatSingleDocument(chunks []model.Chunk, docName string) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(chunks)+1)
	parts = append(parts, fmt.Sprintf("=== DOCUMENT: %s ===", docName))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("Excerpt %d: %s", i+1, c.Text))
	}
	return strings.Join(parts, "\n")
}

// formatMultiDocument groups excerpts by source document in first-seen
// order, with a blank line after each group.
func formatMultiDocument(chunks []model.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var order []string
	bySource := make(map[string][]string)
	for _, c := range chunks {
		source := c.Source()
		if source == "" {
			source = "Unknown Source"
		}
		if _, ok := bySource[source]; !ok {
			order = append(order, source)
		}
		bySource[source] = append(bySource[source], c.Text)
	}

	var parts []string
	for _, source := range order {
		parts = append(parts, fmt.Sprintf("=== DOCUMENT: %s ===", source))
		for i, text := range bySource[source] {
			parts = append(parts, fmt.Sprintf("Excerpt %d: %s", i+1, text))
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n")
}
