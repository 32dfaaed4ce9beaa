package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/infra/memory"
)

// MachineRegistry is a Redis-aware implementation of app.MachineRepository.
// Notes:
//   - Machines still live in a local map; their timers and observers are in-process.
//   - Redis holds a liveness marker per connected profile so operators (or a
//     second instance) can see which profiles are active on this node.
type MachineRegistry struct {
	local  *memory.MachineRegistry
	client *redis.Client
	ttl    time.Duration
}

func NewMachineRegistry(client *redis.Client, factory memory.MachineFactory, ttl time.Duration) *MachineRegistry {
	return &MachineRegistry{
		local:  memory.NewMachineRegistry(factory),
		client: client,
		ttl:    ttl,
	}
}

func (r *MachineRegistry) GetOrCreate(ctx context.Context, profileID string) (*app.Machine, error) {
	m, err := r.local.GetOrCreate(ctx, profileID)
	if err != nil {
		return nil, err
	}
	// best-effort liveness marker
	_ = r.client.Set(ctx, r.key(profileID), "1", r.ttl).Err()
	return m, nil
}

func (r *MachineRegistry) Attach(ctx context.Context, profileID string) (*app.Machine, <-chan app.State, func(), error) {
	m, updates, cancel, err := r.local.Attach(ctx, profileID)
	if err != nil {
		return nil, nil, nil, err
	}
	_ = r.client.Set(ctx, r.key(profileID), "1", r.ttl).Err()
	return m, updates, cancel, nil
}

func (r *MachineRegistry) Get(profileID string) (*app.Machine, bool) {
	return r.local.Get(profileID)
}

func (r *MachineRegistry) ReleaseIfIdle(profileID string) {
	r.local.ReleaseIfIdle(profileID)
	if _, ok := r.local.Get(profileID); !ok {
		_ = r.client.Del(context.Background(), r.key(profileID)).Err()
	}
}

func (r *MachineRegistry) key(profileID string) string {
	return "quiz:live:" + profileID
}
