package memory

import (
	"context"
	"sync"

	"trivia-quiz/internal/app"
)

// MachineFactory builds an uninitialized machine for a profile.
type MachineFactory func(profileID string) *app.Machine

// MachineRegistry is an in-memory implementation of app.MachineRepository.
type MachineRegistry struct {
	factory MachineFactory

	mu       sync.Mutex
	machines map[string]*app.Machine
}

func NewMachineRegistry(factory MachineFactory) *MachineRegistry {
	return &MachineRegistry{
		factory:  factory,
		machines: make(map[string]*app.Machine),
	}
}

func (r *MachineRegistry) GetOrCreate(ctx context.Context, profileID string) (*app.Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(ctx, profileID)
}

// Attach returns the profile's machine already subscribed to. Holding the
// registry lock across both steps keeps ReleaseIfIdle from closing the machine in between.
func (r *MachineRegistry) Attach(ctx context.Context, profileID string) (*app.Machine, <-chan app.State, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.getOrCreateLocked(ctx, profileID)
	if err != nil {
		return nil, nil, nil, err
	}
	updates, cancel := m.Subscribe()
	return m, updates, cancel, nil
}

func (r *MachineRegistry) getOrCreateLocked(ctx context.Context, profileID string) (*app.Machine, error) {
	if m, ok := r.machines[profileID]; ok {
		return m, nil
	}
	m := r.factory(profileID)
	if _, err := m.Init(ctx); err != nil {
		m.Close()
		return nil, err
	}
	r.machines[profileID] = m
	return m, nil
}

func (r *MachineRegistry) Get(profileID string) (*app.Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[profileID]
	return m, ok
}

func (r *MachineRegistry) ReleaseIfIdle(profileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[profileID]
	if !ok {
		return
	}
	if m.Subscribers() == 0 {
		m.Close()
		delete(r.machines, profileID)
	}
}
