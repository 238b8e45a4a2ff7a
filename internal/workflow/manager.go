// internal/workflow/manager.go
package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/apexchain/apex-backend/internal/metrics"
)

var ErrNotFound = errors.New("registration not found")

// Manager keeps in-flight registrations in memory. Registrations idle for longer than the
// session TTL are dropped.
type Manager struct {
	deps    Deps
	ttl     time.Duration
	entries *cache.Cache
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	m := &Manager{
		deps:    deps,
		ttl:     ttl,
		entries: cache.New(ttl, 2*ttl),
	}
	m.entries.OnEvicted(func(string, interface{}) {
		m.deps.Metrics.ActiveWorkflows.Set(float64(m.entries.ItemCount()))
	})
	return m
}

// Create starts a registration owned by owner.
func (m *Manager) Create(owner string) *Registration {
	reg := NewRegistration(uuid.New().String(), owner, m.deps)
	m.entries.Set(reg.ID(), reg, m.ttl)
	m.deps.Metrics.ActiveWorkflows.Set(float64(m.entries.ItemCount()))
	return reg
}

// Get returns a registration and extends its lifetime.
func (m *Manager) Get(id string) (*Registration, error) {
	v, ok := m.entries.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	reg := v.(*Registration)
	m.entries.Set(id, reg, m.ttl)
	return reg, nil
}

func (m *Manager) Delete(id string) {
	m.entries.Delete(id)
}

func (m *Manager) Count() int {
	return m.entries.ItemCount()
}
