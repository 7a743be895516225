package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xavierca1/salespilot/internal/entity"
)

// MemoryStore is the dev and test fallback when no database is configured.
// It enforces the same uniqueness rules as the Postgres schema: one active
// lead per email, one booking per (date, slot), one user per email.
type MemoryStore struct {
	mu       sync.Mutex
	leads    map[string]*entity.Lead
	bookings map[string]*entity.Booking
	users    map[string]*entity.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:    make(map[string]*entity.Lead),
		bookings: make(map[string]*entity.Booking),
		users:    make(map[string]*entity.User),
	}
}

func (s *MemoryStore) Leads() *MemoryLeadRepository       { return &MemoryLeadRepository{s: s} }
func (s *MemoryStore) Bookings() *MemoryBookingRepository { return &MemoryBookingRepository{s: s} }
func (s *MemoryStore) Users() *MemoryUserRepository       { return &MemoryUserRepository{s: s} }

func cloneLead(l *entity.Lead) *entity.Lead {
	cp := *l
	cp.Timeline = append([]entity.TimelineItem(nil), l.Timeline...)
	cp.MarkPersisted()
	return &cp
}

type MemoryLeadRepository struct {
	s *MemoryStore
}

func (r *MemoryLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.activeOwnerLocked(lead) != "" {
		return entity.ErrActiveLeadExists
	}
	r.s.leads[lead.ID] = cloneLead(lead)
	lead.MarkPersisted()
	return nil
}

func (r *MemoryLeadRepository) Save(ctx context.Context, lead *entity.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.leads[lead.ID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	// Timelines only grow, so the length is the version.
	if loaded := len(lead.Timeline) - len(lead.PendingEvents()); loaded != len(stored.Timeline) {
		return entity.ErrStaleLead
	}
	if r.activeOwnerLocked(lead) != "" {
		return entity.ErrActiveLeadExists
	}
	r.s.leads[lead.ID] = cloneLead(lead)
	lead.MarkPersisted()
	return nil
}

// activeOwnerLocked returns the id of another active lead holding lead's
// email, or "" when lead may be stored as is.
func (r *MemoryLeadRepository) activeOwnerLocked(lead *entity.Lead) string {
	if !lead.IsActive() {
		return ""
	}
	for id, other := range r.s.leads {
		if id != lead.ID && other.Email == lead.Email && other.IsActive() {
			return id
		}
	}
	return ""
}

func (r *MemoryLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lead, ok := r.s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

func (r *MemoryLeadRepository) FindActiveByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	email = entity.NormalizeEmail(email)
	for _, lead := range r.sorted(func(l *entity.Lead) bool { return l.Email == email && l.IsActive() }) {
		return lead, nil
	}
	return nil, entity.ErrLeadNotFound
}

func (r *MemoryLeadRepository) FindLatestByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	email = entity.NormalizeEmail(email)
	for _, lead := range r.sorted(func(l *entity.Lead) bool { return l.Email == email }) {
		return lead, nil
	}
	return nil, entity.ErrLeadNotFound
}

func (r *MemoryLeadRepository) FindAll(ctx context.Context) ([]*entity.Lead, error) {
	return r.sorted(func(*entity.Lead) bool { return true }), nil
}

func (r *MemoryLeadRepository) FindLeads(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	return r.sorted(func(l *entity.Lead) bool {
		if f.Status != "" && l.Status != f.Status {
			return false
		}
		if !f.CreatedBefore.IsZero() && l.CreatedAt.After(f.CreatedBefore) {
			return false
		}
		if f.WithoutEvent != "" && l.HasEvent(f.WithoutEvent) {
			return false
		}
		return true
	}), nil
}

// sorted returns copies of the matching leads, newest first.
func (r *MemoryLeadRepository) sorted(match func(*entity.Lead) bool) []*entity.Lead {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*entity.Lead, 0, len(r.s.leads))
	for _, lead := range r.s.leads {
		if match(lead) {
			out = append(out, cloneLead(lead))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type MemoryBookingRepository struct {
	s *MemoryStore
}

func slotKey(date time.Time, slot string) string {
	return date.UTC().Format(entity.DateLayout) + "|" + slot
}

func (r *MemoryBookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := slotKey(b.Date, b.TimeSlot)
	for _, other := range r.s.bookings {
		if slotKey(other.Date, other.TimeSlot) == key {
			return entity.ErrSlotTaken
		}
	}
	cp := *b
	r.s.bookings[b.ID] = &cp
	return nil
}

func (r *MemoryBookingRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[id]; !ok {
		return entity.ErrBookingNotFound
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *MemoryBookingRepository) FindBySlot(ctx context.Context, date time.Time, slot string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := slotKey(date, slot)
	for _, b := range r.s.bookings {
		if slotKey(b.Date, b.TimeSlot) == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *MemoryBookingRepository) FindByDate(ctx context.Context, date time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	day := date.UTC().Format(entity.DateLayout)
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Date.UTC().Format(entity.DateLayout) == day {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MemoryUserRepository struct {
	s *MemoryStore
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.Email]; ok {
		return entity.ErrEmailTaken
	}
	cp := *u
	r.s.users[u.Email] = &cp
	return nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[entity.NormalizeEmail(email)]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
