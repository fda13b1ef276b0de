// Package assistant is the retrieval-to-generation orchestration core.
//
// One question becomes one strict sequence of outbound calls: embed the
// question, search the vector collection, normalize hits into sources,
// render them into a labeled context block, generate the answer (blocking
// or streamed), and generate follow-up suggestions. The stages are strictly
// dependent, so there is no internal parallelism; the hosting server runs
// one logical task per request.
package assistant

import (
	"context"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/rutoken/docs-assistant/internal/log"
	"github.com/rutoken/docs-assistant/internal/openai"
	"github.com/rutoken/docs-assistant/internal/qdrant"
)

const answerTemperature = 0.2

// Embedder turns one query string into a dense vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Searcher returns the nearest points to a vector, payload attached.
type Searcher interface {
	Search(ctx context.Context, vector []float64, limit int) ([]qdrant.Hit, error)
}

// Generator produces model completions. Implemented by internal/openai.
type Generator interface {
	Complete(ctx context.Context, msgs []openai.Message, temperature float64) (string, error)
	CompleteJSON(ctx context.Context, prompt string, temperature float64) (string, error)
	Stream(ctx context.Context, msgs []openai.Message, temperature float64) iter.Seq2[string, error]
}

// Config holds the retrieval tunables.
type Config struct {
	DefaultTopK     int
	MaxSnippetChars int
}

// Service orchestrates one question → answer transaction.
type Service struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	cfg       Config
	logger    log.Logger
}

// New creates a Service.
func New(embedder Embedder, searcher Searcher, generator Generator, cfg Config, logger log.Logger) *Service {
	return &Service{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// retrieve embeds the question, searches the collection and renders the
// normalized sources into the prompt context block. Any outbound failure
// propagates unchanged; there is no local retry.
func (s *Service) retrieve(ctx context.Context, question string, topK int) ([]Source, string, error) {
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, "", err
	}

	hits, err := s.searcher.Search(ctx, vector, topK)
	if err != nil {
		return nil, "", err
	}

	sources := normalizeSources(hits, s.cfg.MaxSnippetChars)
	return sources, buildContext(sources), nil
}

// Ask answers one question in blocking mode.
// topK <= 0 selects the configured default.
func (s *Service) Ask(ctx context.Context, question string, history []HistoryMessage, topK int) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	sources, contextBlock, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return Answer{}, err
	}

	answer, err := s.generator.Complete(ctx, buildMessages(question, history, contextBlock), answerTemperature)
	if err != nil {
		return Answer{}, err
	}
	if answer == "" {
		// A legitimate empty completion is passed through as a normal
		// result, but it is degenerate enough to be worth a log line.
		s.logger.Warn("model returned empty answer", "question_len", len(question))
	}

	return Answer{
		Answer:    answer,
		Sources:   sources,
		Followups: s.generateFollowups(ctx, question, answer, sources),
		AnswerID:  uuid.NewString(),
	}, nil
}

// StreamAnswer answers one question in streaming mode. It yields one
// StreamValue per text delta as it arrives from the model, then exactly one
// terminal value with Done set carrying the complete Answer. On failure the
// iterator yields the error and stops; the caller converts it into a
// terminal error event so the stream is never left hanging.
func (s *Service) StreamAnswer(ctx context.Context, question string, history []HistoryMessage, topK int) iter.Seq2[StreamValue, error] {
	return func(yield func(StreamValue, error) bool) {
		question = strings.TrimSpace(question)
		if question == "" {
			yield(StreamValue{}, ErrEmptyQuestion)
			return
		}

		sources, contextBlock, err := s.retrieve(ctx, question, topK)
		if err != nil {
			yield(StreamValue{}, err)
			return
		}

		msgs := buildMessages(question, history, contextBlock)

		var chunks strings.Builder
		for delta, err := range s.generator.Stream(ctx, msgs, answerTemperature) {
			if err != nil {
				yield(StreamValue{}, err)
				return
			}
			chunks.WriteString(delta)
			if !yield(StreamValue{Delta: delta}, nil) {
				return
			}
		}

		answer := strings.TrimSpace(chunks.String())
		yield(StreamValue{
			Done: true,
			Final: Answer{
				Answer:    answer,
				Sources:   sources,
				Followups: s.generateFollowups(ctx, question, answer, sources),
				AnswerID:  uuid.NewString(),
			},
		}, nil)
	}
}
