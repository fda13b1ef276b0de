package assistant

import (
	"fmt"

	"github.com/rutoken/docs-assistant/internal/openai"
)

// historyWindow is how many trailing history messages reach the model.
const historyWindow = 8

// systemPrompt constrains the assistant to the supplied context, Russian
// output, and bracketed [S1]-style citations.
const systemPrompt = "Ты встроенный AI-помощник портала документации Рутокен. " +
	"Отвечай только на основе переданного контекста. " +
	"Если данных недостаточно, явно скажи это и предложи, что уточнить. " +
	"Пиши кратко и по делу. " +
	"Для фактических утверждений добавляй ссылки на источники в формате [S1], [S2]."

// buildMessages assembles the system + history + user message sequence used
// by both the blocking and streaming generation paths.
func buildMessages(question string, history []HistoryMessage, context string) []openai.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	msgs := make([]openai.Message, 0, len(history)+2)
	msgs = append(msgs, openai.Message{Role: "system", Content: systemPrompt})
	for _, h := range history {
		msgs = append(msgs, openai.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, openai.Message{
		Role: RoleUser,
		Content: fmt.Sprintf(
			"Вопрос пользователя:\n%s\n\nКонтекст из базы знаний:\n%s\n\nСформируй ответ на русском языке.",
			question, context),
	})
	return msgs
}
