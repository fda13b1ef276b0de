package assistant

// History message roles accepted from the API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryMessage is one prior conversation turn supplied by the caller.
// Only the trailing historyWindow messages are forwarded to the model.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source is a normalized search hit shown to the user as evidence.
// It is derived once per request from a Qdrant payload and immutable
// afterward; ordering follows the search relevance order.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	DocPath string  `json:"doc_path,omitempty"`
	Section string  `json:"section,omitempty"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// Answer is the complete result of one question.
type Answer struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Followups []string `json:"followups"`
	AnswerID  string   `json:"answer_id"`
}

// StreamValue is one step of a streaming answer. While streaming, Delta
// carries a text fragment; the terminal value has Done set and Final filled.
type StreamValue struct {
	Delta string
	Done  bool
	Final Answer
}
