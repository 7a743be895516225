package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/salespilot/internal/entity"
)

func newStoredLead(t *testing.T, repo *MemoryLeadRepository, email string, status entity.Status, at time.Time) *entity.Lead {
	t.Helper()
	lead := entity.NewLead("Ada", email, "5551234567", "web", 10000, at)
	lead.Status = status
	lead.AppendEvent("created", at)
	require.NoError(t, repo.Create(context.Background(), lead))
	return lead
}

func TestMemoryLeadRepository_OneActiveLeadPerEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newStoredLead(t, repo, "ada@example.com", entity.StatusNew, now)

	dup := entity.NewLead("Ada", "ADA@example.com ", "5551234567", "web", 10, now)
	dup.Status = entity.StatusQualified
	assert.ErrorIs(t, repo.Create(ctx, dup), entity.ErrActiveLeadExists)

	dup.Status = entity.StatusRejected
	assert.NoError(t, repo.Create(ctx, dup), "terminal leads do not claim the email")
}

func TestMemoryLeadRepository_SaveReactivationConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	now := time.Now().UTC()

	old := newStoredLead(t, repo, "bob@example.com", entity.StatusLost, now)
	newStoredLead(t, repo, "bob@example.com", entity.StatusNew, now.Add(time.Minute))

	old.Status = entity.StatusQualified
	assert.ErrorIs(t, repo.Save(ctx, old), entity.ErrActiveLeadExists)
}

func TestMemoryLeadRepository_SaveRejectsStaleCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	now := time.Now().UTC()
	lead := newStoredLead(t, repo, "dee@example.com", entity.StatusQualified, now)

	sweep, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	dashboard, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)

	dashboard.Status = entity.StatusWon
	dashboard.AppendEvent(entity.StatusChangedEvent(entity.StatusWon), now)
	require.NoError(t, repo.Save(ctx, dashboard))

	sweep.AppendEvent(entity.EventReminderSent, now)
	assert.ErrorIs(t, repo.Save(ctx, sweep), entity.ErrStaleLead)

	stored, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWon, stored.Status)
	assert.False(t, stored.HasEvent(entity.EventReminderSent))
}

func TestMemoryLeadRepository_FindersReturnCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	lead := newStoredLead(t, repo, "cy@example.com", entity.StatusNew, time.Now().UTC())

	got, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	got.AppendEvent("local only", time.Now().UTC())
	assert.Len(t, got.PendingEvents(), 1)

	again, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, again.Timeline, 1)
	assert.Empty(t, again.PendingEvents())

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestMemoryLeadRepository_FindLatestAndActive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rejected := newStoredLead(t, repo, "dee@example.com", entity.StatusRejected, t0.Add(time.Hour))
	active := newStoredLead(t, repo, "dee@example.com", entity.StatusNew, t0)

	latest, err := repo.FindLatestByEmail(ctx, "Dee@Example.com")
	require.NoError(t, err)
	assert.Equal(t, rejected.ID, latest.ID)

	got, err := repo.FindActiveByEmail(ctx, "dee@example.com")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = repo.FindActiveByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestMemoryLeadRepository_FindLeadsFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Leads()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	stale := newStoredLead(t, repo, "a@example.com", entity.StatusQualified, now.Add(-48*time.Hour))
	reminded := newStoredLead(t, repo, "b@example.com", entity.StatusQualified, now.Add(-48*time.Hour))
	reminded.AppendEvent(entity.EventReminderSent, now.Add(-time.Hour))
	require.NoError(t, repo.Save(ctx, reminded))
	newStoredLead(t, repo, "c@example.com", entity.StatusQualified, now.Add(-time.Hour))
	newStoredLead(t, repo, "d@example.com", entity.StatusNew, now.Add(-48*time.Hour))

	leads, err := repo.FindLeads(ctx, entity.LeadFilter{
		Status:        entity.StatusQualified,
		CreatedBefore: now.Add(-24 * time.Hour),
		WithoutEvent:  entity.EventReminderSent,
	})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, stale.ID, leads[0].ID)
}

func TestMemoryBookingRepository_SlotUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.Bookings()
	now := time.Now().UTC()
	lead := entity.NewLead("Eve", "eve@example.com", "5551234567", "web", 1, now)
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	first := entity.NewBooking(lead, date, "10:00 AM", "https://meet.example/x", now)
	require.NoError(t, repo.Create(ctx, first))

	second := entity.NewBooking(lead, date, "10:00 AM", "https://meet.example/y", now)
	assert.ErrorIs(t, repo.Create(ctx, second), entity.ErrSlotTaken)

	other := entity.NewBooking(lead, date, "11:00 AM", "https://meet.example/z", now)
	require.NoError(t, repo.Create(ctx, other))

	found, err := repo.FindBySlot(ctx, date, "10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	day, err := repo.FindByDate(ctx, date)
	require.NoError(t, err)
	assert.Len(t, day, 2)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.FindBySlot(ctx, date, "10:00 AM")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), entity.ErrBookingNotFound)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Users()
	u := entity.NewUser("Op@Example.com", "hash", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, entity.NewUser("op@example.com", "x", time.Now())), entity.ErrEmailTaken)

	got, err := repo.FindByEmail(ctx, " OP@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}
