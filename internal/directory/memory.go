package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryLookup is a map-backed Lookup for tests and local development.
type InMemoryLookup struct {
	mu       sync.RWMutex
	patients map[string]map[uuid.UUID]*Patient
	doctors  map[string]map[uuid.UUID]*Doctor
}

// NewInMemoryLookup creates an empty in-memory lookup.
func NewInMemoryLookup() *InMemoryLookup {
	return &InMemoryLookup{
		patients: make(map[string]map[uuid.UUID]*Patient),
		doctors:  make(map[string]map[uuid.UUID]*Doctor),
	}
}

// AddPatient registers a patient under its tenant.
func (l *InMemoryLookup) AddPatient(p *Patient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.patients[p.TenantID] == nil {
		l.patients[p.TenantID] = make(map[uuid.UUID]*Patient)
	}
	l.patients[p.TenantID][p.ID] = p
}

// AddDoctor registers a doctor under its tenant.
func (l *InMemoryLookup) AddDoctor(d *Doctor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doctors[d.TenantID] == nil {
		l.doctors[d.TenantID] = make(map[uuid.UUID]*Doctor)
	}
	l.doctors[d.TenantID][d.ID] = d
}

// GetPatient implements Lookup.
func (l *InMemoryLookup) GetPatient(ctx context.Context, tenantID string, id uuid.UUID) (*Patient, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.patients[tenantID][id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

// GetDoctor implements Lookup.
func (l *InMemoryLookup) GetDoctor(ctx context.Context, tenantID string, id uuid.UUID) (*Doctor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.doctors[tenantID][id]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

var _ Lookup = (*InMemoryLookup)(nil)
