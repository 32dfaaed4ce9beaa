package memory

import (
	"context"

	"trivia-quiz/internal/domain"
)

// StaticProvider serves a fixed question set and category list (useful for tests/demos).
type StaticProvider struct {
	questions  []domain.Question
	categories []domain.Category
}

func NewStaticProvider(questions []domain.Question, categories []domain.Category) *StaticProvider {
	return &StaticProvider{questions: questions, categories: categories}
}

// Questions returns up to settings.Amount questions, filtered by type and difficulty when set.
func (p *StaticProvider) Questions(_ context.Context, settings domain.QuizSettings) ([]domain.Question, error) {
	out := make([]domain.Question, 0, settings.Amount)
	for _, q := range p.questions {
		if len(out) == settings.Amount {
			break
		}
		if settings.Type != "" && q.Type != settings.Type {
			continue
		}
		if settings.Difficulty != "" && q.Difficulty != settings.Difficulty {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (p *StaticProvider) Categories(_ context.Context) ([]domain.Category, error) {
	return p.categories, nil
}
