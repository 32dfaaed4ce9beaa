package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/quizutil"
)

const (
	sessionKey     = "session"
	progressKey    = "quizProgress"
	statsKeyPrefix = "userStats_"
)

// DefaultSessionTTL caps how long a login is remembered.
const DefaultSessionTTL = 30 * time.Minute

// Store persists the session, the in-flight quiz snapshot and per-user statistics
// for a single browser profile. Unreadable entries are treated as absent and removed.
type Store struct {
	kv  KeyValueStore
	ttl time.Duration
	now func() time.Time
}

func NewStore(kv KeyValueStore, ttl time.Duration) *Store {
	return NewStoreWithClock(kv, ttl, time.Now)
}

// NewStoreWithClock allows deterministic expiry in tests.
func NewStoreWithClock(kv KeyValueStore, ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{kv: kv, ttl: ttl, now: now}
}

func (s *Store) SaveSession(ctx context.Context, username string) (domain.Session, error) {
	session := domain.Session{
		Username:  username,
		ExpiresAt: s.now().Add(s.ttl).UnixMilli(),
	}
	return session, s.setJSON(ctx, sessionKey, session)
}

// LoadSession returns nil when no session is stored, or when it is corrupt or expired.
func (s *Store) LoadSession(ctx context.Context) (*domain.Session, error) {
	var session domain.Session
	ok, err := s.getJSON(ctx, sessionKey, &session)
	if err != nil || !ok {
		return nil, err
	}
	if s.now().UnixMilli() >= session.ExpiresAt {
		return nil, s.kv.Remove(ctx, sessionKey)
	}
	return &session, nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.kv.Remove(ctx, sessionKey)
}

func (s *Store) SaveProgress(ctx context.Context, progress domain.QuizProgress) error {
	return s.setJSON(ctx, progressKey, progress)
}

// LoadProgress returns nil when nothing is stored or the snapshot cannot be used.
func (s *Store) LoadProgress(ctx context.Context) (*domain.QuizProgress, error) {
	var progress domain.QuizProgress
	ok, err := s.getJSON(ctx, progressKey, &progress)
	if err != nil || !ok {
		return nil, err
	}
	if !consistent(progress) {
		log.Printf("discarding inconsistent quiz progress for %q", progress.Username)
		return nil, s.kv.Remove(ctx, progressKey)
	}
	return &progress, nil
}

// HasProgress reports whether a usable snapshot is stored.
func (s *Store) HasProgress(ctx context.Context) (bool, error) {
	progress, err := s.LoadProgress(ctx)
	return progress != nil, err
}

func (s *Store) ClearProgress(ctx context.Context) error {
	return s.kv.Remove(ctx, progressKey)
}

// LoadStats returns zeroed stats when none are stored.
func (s *Store) LoadStats(ctx context.Context, username string) (domain.UserStats, error) {
	var stats domain.UserStats
	ok, err := s.getJSON(ctx, statsKey(username), &stats)
	if err != nil || !ok {
		return domain.UserStats{}, err
	}
	return stats, nil
}

// RecordQuizResult folds a finished quiz into the user's running statistics.
func (s *Store) RecordQuizResult(ctx context.Context, username string, result domain.QuizResult) (domain.UserStats, error) {
	stats, err := s.LoadStats(ctx, username)
	if err != nil {
		return stats, err
	}

	stats.AverageScore = quizutil.RunningAverage(stats.AverageScore, stats.TotalQuizzes, result.ScorePercentage)
	stats.TotalQuizzes++
	stats.TotalQuestions += result.TotalQuestions
	stats.TotalCorrect += result.CorrectAnswers
	stats.TotalWrong += result.StatsWrong()
	if result.ScorePercentage > stats.BestScore {
		stats.BestScore = result.ScorePercentage
	}

	if err := s.setJSON(ctx, statsKey(username), stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func statsKey(username string) string {
	return statsKeyPrefix + username
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// getJSON reports false for missing keys and for values that fail to decode; the latter are deleted.
func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("discarding unreadable %s: %v", key, err)
		if err := s.kv.Remove(ctx, key); err != nil {
			return false, fmt.Errorf("remove %s: %w", key, err)
		}
		return false, nil
	}
	return true, nil
}

// consistent rejects snapshots no quiz could have written, including "null" and "{}".
// Every answered question advances the index by one, so the two always match.
func consistent(p domain.QuizProgress) bool {
	if p.Username == "" || len(p.Questions) == 0 {
		return false
	}
	if p.CurrentQuestionIndex < 0 || p.CurrentQuestionIndex > len(p.Questions) {
		return false
	}
	if len(p.Answers) != p.CurrentQuestionIndex {
		return false
	}
	for i, a := range p.Answers {
		if a.QuestionIndex != i {
			return false
		}
	}
	return true
}
