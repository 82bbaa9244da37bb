package session

import (
	"sync"

	"github.com/wolfeidau/hrms/internal/models"
)

// Snapshot is the persisted copy of the last known identity. It is only a
// hint used to skip the loading phase on start up; the server cookie is the
// source of truth.
//
// Load returns nil, nil when nothing is stored. An error from Load means the
// slot is unreadable; the store clears it and carries on without it.
type Snapshot interface {
	Load() (*models.Identity, error)
	Save(identity *models.Identity) error
	Clear() error
}

// MemorySnapshot keeps the snapshot in process memory.
type MemorySnapshot struct {
	mu       sync.Mutex
	identity *models.Identity
}

var _ Snapshot = (*MemorySnapshot)(nil)

// NewMemorySnapshot returns a snapshot holding identity, which may be nil.
func NewMemorySnapshot(identity *models.Identity) *MemorySnapshot {
	return &MemorySnapshot{identity: identity.Clone()}
}

func (m *MemorySnapshot) Load() (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.Clone(), nil
}

func (m *MemorySnapshot) Save(identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = identity.Clone()
	return nil
}

func (m *MemorySnapshot) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = nil
	return nil
}
