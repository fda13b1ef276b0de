package assistant

import (
	"fmt"
	"strings"

	"github.com/rutoken/docs-assistant/internal/qdrant"
)

// defaultTitle is used when a hit's payload carries no title.
const defaultTitle = "Документация Рутокен"

// normalizeSources converts raw hits into Source records, preserving the
// search relevance order.
func normalizeSources(hits []qdrant.Hit, maxSnippetChars int) []Source {
	sources := make([]Source, 0, len(hits))
	for _, h := range hits {
		payload := h.Payload
		if payload == nil {
			payload = map[string]any{}
		}

		title := payloadString(payload, "title")
		if title == "" {
			title = defaultTitle
		}

		sources = append(sources, Source{
			Title:   title,
			URL:     payloadString(payload, "source_url"),
			DocPath: payloadString(payload, "doc_path"),
			Section: joinHeaderPath(payload["header_path"]),
			Score:   h.Score,
			Snippet: truncateSnippet(strings.TrimSpace(payloadString(payload, "text")), maxSnippetChars),
		})
	}
	return sources
}

// truncateSnippet bounds text to limit characters, appending an ellipsis
// only when something was cut. Limits count runes, not bytes: the corpus is
// mostly Cyrillic and a byte cut would split characters.
func truncateSnippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// joinHeaderPath renders the payload's header breadcrumb ("header_path",
// a list of strings) as a single " / "-joined section path.
func joinHeaderPath(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// payloadString reads a payload field as a string, tolerating absent keys
// and non-string values.
func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// buildContext renders sources into the labeled text block embedded in the
// prompt. Absent fields render as "-" so the block keeps a fixed shape
// regardless of payload quality.
func buildContext(sources []Source) string {
	blocks := make([]string, 0, len(sources))
	for i, src := range sources {
		blocks = append(blocks, fmt.Sprintf("[S%d] %s\nsection: %s\nurl: %s\ntext: %s",
			i+1,
			src.Title,
			orDash(src.Section),
			orDash(src.URL),
			orDash(src.Snippet)))
	}
	return strings.Join(blocks, "\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
