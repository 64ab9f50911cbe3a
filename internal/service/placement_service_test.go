package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/internal/repository"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type fakePlacementStore struct {
	mu       sync.Mutex
	items    map[string]*models.PlacementDetail
	owners   map[string]string
	names    map[string]string
	seq      int
	raceDupe bool
}

func newFakePlacementStore() *fakePlacementStore {
	return &fakePlacementStore{
		items:  map[string]*models.PlacementDetail{},
		owners: map[string]string{"stu-a": "user-a", "stu-b": "user-b"},
		names:  map[string]string{"stu-a": "Ana", "stu-b": "Bruno"},
	}
}

func (f *fakePlacementStore) Create(_ context.Context, appt *models.PlacementAppointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceDupe {
		return repository.ErrDuplicatePending
	}
	f.seq++
	appt.ID = fmt.Sprintf("p-%d", f.seq)
	f.items[appt.ID] = &models.PlacementDetail{
		PlacementAppointment: *appt,
		StudentName:          f.names[appt.StudentID],
		StudentUserID:        f.owners[appt.StudentID],
	}
	return nil
}

func (f *fakePlacementStore) FindByID(_ context.Context, id string) (*models.PlacementDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (f *fakePlacementStore) FindPendingByStudent(_ context.Context, studentID string) (*models.PlacementAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.StudentID == studentID && item.Status == models.PlacementStatusPending {
			copied := item.PlacementAppointment
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePlacementStore) UpdateSchedule(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != models.PlacementStatusPending {
		return sql.ErrNoRows
	}
	item.ScheduledAt = at
	return nil
}

func (f *fakePlacementStore) UpdateStatus(_ context.Context, id string, status models.PlacementStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != models.PlacementStatusPending {
		return sql.ErrNoRows
	}
	item.Status = status
	return nil
}

func newPlacementFixture(nonWorking ...models.NonWorkingDay) (*PlacementService, *fakePlacementStore) {
	store := newFakePlacementStore()
	access := NewStudentAccess(seatStudentStub{
		"stu-a": {ID: "stu-a", UserID: "user-a"},
		"stu-b": {ID: "stu-b", UserID: "user-b"},
	})
	svc := NewPlacementService(store, newFakeCalendarStore(nonWorking...), access, nil, lima, nil, nil).
		WithClock(fixedClock(time.Date(2026, time.January, 5, 9, 0, 0, 0, lima)))
	return svc, store
}

var (
	familyA     = &models.JWTClaims{UserID: "user-a", Role: models.RoleFamily}
	familyB     = &models.JWTClaims{UserID: "user-b", Role: models.RoleFamily}
	adminCaller = &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}
)

func TestRequestPlacement(t *testing.T) {
	svc, _ := newPlacementFixture()

	appt, err := svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-07T15:00", Note: " primera vez "})
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusPending, appt.Status)
	assert.Equal(t, "primera vez", appt.Note)
	assert.Equal(t, 15, appt.ScheduledAt.Hour())
	assert.Equal(t, lima, appt.ScheduledAt.Location())

	_, err = svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-08T15:00"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "2026-01-07 15:00")
}

func TestRequestPlacementRejections(t *testing.T) {
	holiday := models.NonWorkingDay{Date: time.Date(2026, time.January, 8, 12, 0, 0, 0, lima), Reason: "Feriado"}
	svc, store := newPlacementFixture(holiday)

	_, err := svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-08T10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNonWorkingDay))

	_, err = svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-05T08:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "tomorrow"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Request(context.Background(), familyB, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-07T10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Request(context.Background(), adminCaller, RequestPlacementRequest{StudentID: "ghost", ScheduledAt: "2026-01-07T10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	store.raceDupe = true
	_, err = svc.Request(context.Background(), adminCaller, RequestPlacementRequest{StudentID: "stu-b", ScheduledAt: "2026-01-07T10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRescheduleAndCancelPlacement(t *testing.T) {
	svc, store := newPlacementFixture()
	appt, err := svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-07T15:00"})
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), familyB, appt.ID, ReschedulePlacementRequest{ScheduledAt: "2026-01-09T15:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	moved, err := svc.Reschedule(context.Background(), familyA, appt.ID, ReschedulePlacementRequest{ScheduledAt: "2026-01-09T15:00"})
	require.NoError(t, err)
	assert.Equal(t, models.DateKey("2026-01-09"), models.DateKeyOf(moved.ScheduledAt))

	require.NoError(t, svc.Cancel(context.Background(), adminCaller, appt.ID))
	assert.Equal(t, models.PlacementStatusCancelled, store.items[appt.ID].Status)

	err = svc.Cancel(context.Background(), familyA, appt.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	err = svc.Cancel(context.Background(), familyA, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Request(context.Background(), familyA, RequestPlacementRequest{StudentID: "stu-a", ScheduledAt: "2026-01-12T15:00"})
	require.NoError(t, err)
}
