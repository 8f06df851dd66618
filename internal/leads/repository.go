package leads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for lead storage.
type Repository interface {
	Create(ctx context.Context, data CreateLeadData) (*Lead, error)
	FindByID(ctx context.Context, id int64) (*Lead, error)
	FindByEmail(ctx context.Context, email string) ([]*Lead, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*Lead, error)
	Update(ctx context.Context, id int64, data UpdateLeadData) (*Lead, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Lead, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// InMemoryRepository is a Repository backed by process memory, used in
// tests and local development without Postgres.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	leads  map[int64]*Lead
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{leads: make(map[int64]*Lead)}
}

// Create stores a new lead and assigns the next id.
func (r *InMemoryRepository) Create(ctx context.Context, data CreateLeadData) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	lead := &Lead{
		ID:        r.nextID,
		Name:      data.Name,
		Email:     data.Email,
		Phone:     data.Phone,
		Company:   data.Company,
		Subject:   data.Subject,
		Message:   data.Message,
		Source:    data.Source,
		Locale:    data.Locale,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
		Status:    "new",
		CreatedAt: time.Now().UTC(),
	}
	r.leads[lead.ID] = lead

	copied := *lead
	return &copied, nil
}

// FindByID retrieves a lead by id.
func (r *InMemoryRepository) FindByID(ctx context.Context, id int64) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

// FindByEmail returns all leads submitted with the given email, newest first.
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, lead := range r.leads {
		if lead.Email == email {
			copied := *lead
			out = append(out, &copied)
		}
	}
	sortLeads(out, "desc")
	return out, nil
}

// FindAll lists leads matching the filter.
func (r *InMemoryRepository) FindAll(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, lead := range r.leads {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		copied := *lead
		out = append(out, &copied)
	}
	sortLeads(out, filter.OrderBy)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update applies a partial update.
func (r *InMemoryRepository) Update(ctx context.Context, id int64, data UpdateLeadData) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if data.Status != nil {
		lead.Status = *data.Status
	}
	if data.Name != nil {
		lead.Name = *data.Name
	}
	if data.Email != nil {
		lead.Email = *data.Email
	}
	if data.Phone != nil {
		lead.Phone = data.Phone
	}
	if data.Company != nil {
		lead.Company = data.Company
	}
	if data.Subject != nil {
		lead.Subject = data.Subject
	}
	if data.Message != nil {
		lead.Message = *data.Message
	}
	copied := *lead
	return &copied, nil
}

// UpdateStatus sets only the status field.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Lead, error) {
	return r.Update(ctx, id, UpdateLeadData{Status: &status})
}

// Delete removes a lead.
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

// CountByStatus counts leads, optionally filtered by status.
func (r *InMemoryRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if status == "" {
		return int64(len(r.leads)), nil
	}
	var n int64
	for _, lead := range r.leads {
		if lead.Status == status {
			n++
		}
	}
	return n, nil
}

func sortLeads(leads []*Lead, orderBy string) {
	asc := orderBy == "asc"
	sort.Slice(leads, func(i, j int) bool {
		if leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			if asc {
				return leads[i].ID < leads[j].ID
			}
			return leads[i].ID > leads[j].ID
		}
		if asc {
			return leads[i].CreatedAt.Before(leads[j].CreatedAt)
		}
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
}

var _ Repository = (*InMemoryRepository)(nil)
