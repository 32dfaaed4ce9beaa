package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
)

type mapKV struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMapKV() *mapKV {
	return &mapKV{entries: make(map[string]string)}
}

func (kv *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.entries[key]
	return v, ok, nil
}

func (kv *mapKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.entries[key] = value
	return nil
}

func (kv *mapKV) Remove(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.entries, key)
	return nil
}

func (kv *mapKV) has(key string) bool {
	_, ok, _ := kv.Get(context.Background(), key)
	return ok
}

type fakeProvider struct {
	questions []domain.Question
	err       error
	calls     int
	// before runs inside Questions, e.g. to simulate the user navigating away mid-fetch.
	before func()
}

func (p *fakeProvider) Questions(_ context.Context, settings domain.QuizSettings) ([]domain.Question, error) {
	p.calls++
	if p.before != nil {
		p.before()
	}
	if p.err != nil {
		return nil, p.err
	}
	if settings.Amount < len(p.questions) {
		return p.questions[:settings.Amount], nil
	}
	return p.questions, nil
}

var errNetwork = errors.New("network down")

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stillTicker never fires; tests drive the countdown through tickNow.
func stillTicker() (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Category:         "Science &amp; Nature",
			Type:             domain.TypeMultiple,
			Difficulty:       "easy",
			Question:         "What is the chemical symbol for water?",
			CorrectAnswer:    "H2O",
			IncorrectAnswers: []string{"CO2", "O2", "NaCl"},
		},
		{
			Category:         "Geography",
			Type:             domain.TypeMultiple,
			Difficulty:       "medium",
			Question:         "What is the capital of Spain?",
			CorrectAnswer:    "Madrid",
			IncorrectAnswers: []string{"Paris", "Rome", "Berlin"},
		},
		{
			Category:         "History",
			Type:             domain.TypeMultiple,
			Difficulty:       "hard",
			Question:         "In which year did the Berlin Wall fall?",
			CorrectAnswer:    "1989",
			IncorrectAnswers: []string{"1991", "1987", "1979"},
		},
	}
}
