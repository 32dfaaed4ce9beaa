package app

import (
	"context"
	"time"

	"trivia-quiz/internal/domain"
)

// MachineRepository keeps one live Machine per browser profile (in-memory, Redis-marked, etc).
type MachineRepository interface {
	GetOrCreate(ctx context.Context, profileID string) (*Machine, error)
	// Attach is GetOrCreate plus Subscribe, done without a release in between.
	Attach(ctx context.Context, profileID string) (*Machine, <-chan State, func(), error)
	Get(profileID string) (*Machine, bool)
	ReleaseIfIdle(profileID string)
}

// CategoryProvider lists the provider's question categories.
type CategoryProvider interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

// QuizService is the entry point used by the transports.
type QuizService struct {
	machines   MachineRepository
	categories CategoryProvider
	kv         KeyValueStore
	sessionTTL time.Duration
}

func NewQuizService(machines MachineRepository, categories CategoryProvider, kv KeyValueStore, sessionTTL time.Duration) *QuizService {
	return &QuizService{
		machines:   machines,
		categories: categories,
		kv:         kv,
		sessionTTL: sessionTTL,
	}
}

// NewProfileStore returns the Store for one browser profile inside a shared keyspace.
func NewProfileStore(kv KeyValueStore, profileID string, ttl time.Duration) *Store {
	return NewStore(WithPrefix(kv, ProfilePrefix(profileID)), ttl)
}

// Join attaches to the profile's machine, creating and initializing it on first use.
func (s *QuizService) Join(ctx context.Context, profileID string) (State, error) {
	m, err := s.machines.GetOrCreate(ctx, profileID)
	if err != nil {
		return State{}, err
	}
	return m.State(), nil
}

// Connect joins a profile and subscribes to it in one step. The channel opens
// with the current snapshot. The caller must invoke cancel and then Leave.
func (s *QuizService) Connect(ctx context.Context, profileID string) (<-chan State, func(), error) {
	_, updates, cancel, err := s.machines.Attach(ctx, profileID)
	if err != nil {
		return nil, nil, err
	}
	return updates, cancel, nil
}

// Dispatch forwards an intent to the profile's machine.
func (s *QuizService) Dispatch(ctx context.Context, profileID string, in Intent) (State, error) {
	m, ok := s.machines.Get(profileID)
	if !ok {
		return State{}, domain.ErrProfileNotFound
	}
	return m.Dispatch(ctx, in)
}

// Snapshot returns the current state of a joined profile.
func (s *QuizService) Snapshot(profileID string) (State, error) {
	m, ok := s.machines.Get(profileID)
	if !ok {
		return State{}, domain.ErrProfileNotFound
	}
	return m.State(), nil
}

// Subscribe returns a channel of state snapshots for a profile.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, profileID string) (<-chan State, func(), error) {
	m, ok := s.machines.Get(profileID)
	if !ok {
		return nil, nil, domain.ErrProfileNotFound
	}
	ch, cancel := m.Subscribe()
	return ch, cancel, nil
}

// Leave drops the profile's machine once nobody observes it. Stored progress survives.
func (s *QuizService) Leave(_ context.Context, profileID string) {
	s.machines.ReleaseIfIdle(profileID)
}

// Stats reads a user's statistics from a profile without touching its machine.
func (s *QuizService) Stats(ctx context.Context, profileID, username string) (domain.UserStats, error) {
	return NewProfileStore(s.kv, profileID, s.sessionTTL).LoadStats(ctx, username)
}

func (s *QuizService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.Categories(ctx)
}
