/*
Package chat contains the core logic for chat rooms.

This file defines the Registry, which owns the set of all rooms: it seeds
them from the room store at startup, creates new rooms durably, and serves
lookups. Creation and lookup are serialized so two simultaneous creations of
the same name cannot both succeed.
*/
package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"tlschat/internal/app/ai"
	"tlschat/internal/app/storage"
	"tlschat/internal/pkg/logx"
)

// Registry owns the mapping from room name to live Room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	roomStore *storage.RoomStore
	messages  *storage.MessageStore
	aiConfig  ai.Config

	logger zerolog.Logger
}

// NewRegistry seeds the registry from the room store and returns it.
func NewRegistry(roomStore *storage.RoomStore, messages *storage.MessageStore, aiConfig ai.Config) (*Registry, error) {
	persisted, err := roomStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rooms := make(map[string]*Room, len(persisted))
	for _, rec := range persisted {
		rooms[rec.Name] = NewRoom(rec.Name, rec.IsAI, rec.Prompt, messages, aiConfig)
	}

	return &Registry{
		rooms:     rooms,
		roomStore: roomStore,
		messages:  messages,
		aiConfig:  aiConfig,
		logger:    logx.Logger().With().Str("component", "Registry").Logger(),
	}, nil
}

// CreateRoom persists a new room definition and inserts the live Room. It
// reports false with a nil error when the name already exists; losers of a
// creation race are expected to join the existing room instead.
func (r *Registry) CreateRoom(name string, isAI bool, prompt string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return false, nil
	}

	if err := r.roomStore.Append(storage.RoomRecord{Name: name, IsAI: isAI, Prompt: prompt}); err != nil {
		return false, fmt.Errorf("persist room %s: %w", name, err)
	}
	r.rooms[name] = NewRoom(name, isAI, prompt, r.messages, r.aiConfig)

	r.logger.Info().Str("room", name).Bool("ai", isAI).Msg("Room created.")
	return true, nil
}

// GetRoom returns the room with the given name, or nil.
func (r *Registry) GetRoom(name string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[name]
}

// RoomNames returns the names of all rooms, sorted for stable listings.
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	names := lo.Keys(r.rooms)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
