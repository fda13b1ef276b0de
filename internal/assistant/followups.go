package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxFollowups        = 4
	followupTemperature = 0.4
)

// fallbackFollowups is returned whenever follow-up generation fails in any
// way. Follow-ups must never fail the overall request.
var fallbackFollowups = []string{
	"Какие шаги выполнить в Linux по порядку?",
	"Какие есть типичные ошибки и как их исправить?",
	"Покажи минимальный рабочий пример конфигурации.",
	"Какие версии и компоненты должны быть установлены?",
}

// generateFollowups asks the model for up to four clarifying questions in
// strict JSON mode. Call failures, malformed JSON, wrong shapes and empty
// results all degrade to the static fallback list.
func (s *Service) generateFollowups(ctx context.Context, question, answer string, sources []Source) []string {
	titles := make([]string, 0, maxFollowups)
	for _, src := range sources {
		if len(titles) == maxFollowups {
			break
		}
		if src.Title != "" {
			titles = append(titles, src.Title)
		}
	}

	prompt := fmt.Sprintf(
		"Сгенерируй 4 коротких уточняющих вопроса пользователя по теме ответа. "+
			`Ответ верни строго JSON-объектом вида {"followups":["..."]} без комментариев. `+
			"Исходный вопрос: %s\nОтвет ассистента: %s\nИсточники: %s",
		question, answer, strings.Join(titles, ", "))

	raw, err := s.generator.CompleteJSON(ctx, prompt, followupTemperature)
	if err != nil {
		s.logger.Warn("followup generation failed, using fallback", "error", err)
		return fallbackList()
	}

	var parsed struct {
		Followups []string `json:"followups"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.logger.Warn("followup response is not valid JSON, using fallback", "error", err)
		return fallbackList()
	}

	clean := make([]string, 0, maxFollowups)
	for _, item := range parsed.Followups {
		if len(clean) == maxFollowups {
			break
		}
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return fallbackList()
	}
	return clean
}

// fallbackList returns a fresh copy so callers can't mutate the shared slice.
func fallbackList() []string {
	out := make([]string, len(fallbackFollowups))
	copy(out, fallbackFollowups)
	return out
}
