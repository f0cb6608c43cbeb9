package manager

import (
	"strings"

	"llmd/internal/registry"
)

// composeRaw joins the system prompt and user prompt with a blank line,
// leaving the text exactly as the caller typed it.
func composeRaw(prompt, systemPrompt string) string {
	if systemPrompt == "" {
		return prompt
	}
	return systemPrompt + "\n\n" + prompt
}

// composeTemplated wraps each role's content with the model's configured
// prefix/suffix markers and concatenates in fixed order: system, user, then
// the assistant prefix opening the model's turn.
func composeTemplated(t registry.PromptTemplate, prompt, systemPrompt string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(t.SystemPrefix)
		b.WriteString(systemPrompt)
		b.WriteString(t.SystemSuffix)
	}
	b.WriteString(t.UserPrefix)
	b.WriteString(prompt)
	b.WriteString(t.UserSuffix)
	b.WriteString(t.AssistantPrefix)
	return b.String()
}

// trimAssistant strips a leading assistant prefix and trailing assistant
// suffix; some engines echo the template markers. While streaming it must
// run over the whole accumulated buffer since markers are not token-aligned.
func trimAssistant(t registry.PromptTemplate, s string) string {
	if t.AssistantPrefix != "" {
		s = strings.TrimPrefix(s, t.AssistantPrefix)
	}
	if t.AssistantSuffix != "" {
		s = strings.TrimSuffix(s, t.AssistantSuffix)
	}
	return strings.TrimSpace(s)
}
