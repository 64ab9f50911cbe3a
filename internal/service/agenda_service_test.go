package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type activeEnrollmentStub struct {
	mu          sync.Mutex
	enrollments []models.EnrollmentDetail
	calls       int
}

func (s *activeEnrollmentStub) ListActive(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(filter.StudentIDs) == 0 {
		return s.enrollments, nil
	}
	var out []models.EnrollmentDetail
	for _, e := range s.enrollments {
		for _, id := range filter.StudentIDs {
			if e.StudentID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type pendingPlacementStub []models.PlacementDetail

func (s pendingPlacementStub) ListPending(_ context.Context, from, to time.Time, studentIDs []string) ([]models.PlacementDetail, error) {
	var out []models.PlacementDetail
	for _, p := range s {
		if p.ScheduledAt.Before(from) || !p.ScheduledAt.Before(to) {
			continue
		}
		if studentIDs != nil && !containsString(studentIDs, p.StudentID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

type userStudentStub map[string][]models.Student

func (s userStudentStub) ListByUser(_ context.Context, userID string) ([]models.Student, error) {
	return s[userID], nil
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	removed := 0
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

func agendaEnrollments() []models.EnrollmentDetail {
	ana := regularEnrollment("e1", "LUNES", "16:00-17:20")
	ana.StudentID, ana.StudentName = "stu-a", "Ana"
	bruno := regularEnrollment("e2", "LUNES", "16:00-17:20")
	bruno.StudentID, bruno.StudentName, bruno.Seat = "stu-b", "Bruno", "4"
	carla := regularEnrollment("e3", "MIERCOLES", "17:30-18:50")
	carla.StudentID, carla.StudentName, carla.WorkshopID, carla.WorkshopName = "stu-c", "Carla", "w-2", "Cerámica"
	// listed out of name order to exercise attendee sorting
	return []models.EnrollmentDetail{bruno, ana, carla}
}

func agendaPlacements() pendingPlacementStub {
	return pendingPlacementStub{
		{PlacementAppointment: models.PlacementAppointment{ID: "p1", StudentID: "stu-a", ScheduledAt: time.Date(2026, time.January, 5, 15, 0, 0, 0, lima), Status: models.PlacementStatusPending}, StudentName: "Ana"},
		{PlacementAppointment: models.PlacementAppointment{ID: "p2", StudentID: "stu-c", ScheduledAt: time.Date(2026, time.January, 6, 10, 0, 0, 0, lima), Status: models.PlacementStatusPending}, StudentName: "Carla"},
	}
}

func newAgendaFixture(cache *AgendaCache, nonWorking ...models.NonWorkingDay) (*AgendaService, *activeEnrollmentStub) {
	enrollments := &activeEnrollmentStub{enrollments: agendaEnrollments()}
	students := userStudentStub{"user-a": {{ID: "stu-a", FullName: "Ana"}}}
	expander := newTestExpander(time.Date(2026, time.January, 5, 9, 0, 0, 0, lima))
	svc := NewAgendaService(enrollments, agendaPlacements(), students, calendarListStub{days: nonWorking}, expander, cache, nil,
		AgendaOptions{DefaultDays: 8, MaxDays: 31}, nil)
	return svc, enrollments
}

func TestAdminAgendaGroupsAttendees(t *testing.T) {
	svc, _ := newAgendaFixture(nil)

	agenda, err := svc.Admin(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "2026-01-05", agenda.From)
	assert.Equal(t, "2026-01-07", agenda.To)
	assert.Equal(t, 4, agenda.Total)
	require.Len(t, agenda.Days, 3)

	monday := agenda.Days[0]
	assert.Equal(t, "Lunes", monday.Day)
	require.Len(t, monday.Items, 2)
	assert.Equal(t, dto.AgendaItemPlacement, monday.Items[0].Type)
	assert.Equal(t, "Cita de nivelación", monday.Items[0].Title)
	assert.Equal(t, time.Hour, monday.Items[0].End.Sub(monday.Items[0].Start))

	class := monday.Items[1]
	assert.Equal(t, dto.AgendaItemClass, class.Type)
	assert.Equal(t, "Pintura", class.Title)
	require.Len(t, class.Attendees, 2)
	assert.Equal(t, "Ana", class.Attendees[0].StudentName)
	assert.Equal(t, "Bruno", class.Attendees[1].StudentName)
	assert.Equal(t, 4, class.Attendees[1].Seat)
	assert.Equal(t, dto.AgendaCounts{Classes: 1, Appointments: 1}, monday.Counts)
	assert.Equal(t, dto.AgendaCounts{Classes: 1, Appointments: 1}, agenda.Today)

	assert.Equal(t, "2026-01-06", agenda.Days[1].Date)
	assert.Equal(t, "2026-01-07", agenda.Days[2].Date)
	assert.Equal(t, "Cerámica", agenda.Days[2].Items[0].Title)

	again, err := svc.Admin(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, class.ID, again.Days[0].Items[1].ID)
}

func TestAdminAgendaSkipsNonWorkingDays(t *testing.T) {
	svc, _ := newAgendaFixture(nil, models.NonWorkingDay{Date: time.Date(2026, time.January, 7, 12, 0, 0, 0, lima), Reason: "Feriado"})

	agenda, err := svc.Admin(context.Background(), 3)
	require.NoError(t, err)
	for _, day := range agenda.Days {
		assert.NotEqual(t, "2026-01-07", day.Date)
	}
	assert.Equal(t, 3, agenda.Total)
}

func TestAdminAgendaUsesCache(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewAgendaCache(NewCacheService(repo, nil, time.Minute, nil, true), time.Minute)
	svc, enrollments := newAgendaFixture(cache)

	first, err := svc.Admin(context.Background(), 3)
	require.NoError(t, err)
	second, err := svc.Admin(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollments.calls)
	assert.Equal(t, first.Total, second.Total)
	assert.Contains(t, repo.items, "agenda:admin:2026-01-05:2026-01-07")

	cache.Invalidate(context.Background())
	_, err = svc.Admin(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, enrollments.calls)
}

func TestFamilyAgendaOnlyOwnStudents(t *testing.T) {
	svc, _ := newAgendaFixture(nil)

	agenda, err := svc.Family(context.Background(), "user-a", 8)
	require.NoError(t, err)

	for _, day := range agenda.Days {
		for _, item := range day.Items {
			require.Len(t, item.Attendees, 1)
			assert.Equal(t, "stu-a", item.Attendees[0].StudentID)
		}
	}
	// two Monday classes (5th and 12th) plus one placement
	assert.Equal(t, 3, agenda.Total)
	assert.Equal(t, "e1", agenda.Days[0].Items[1].EnrollmentID)
}

func TestFamilyAgendaWithoutStudentsIsEmpty(t *testing.T) {
	svc, enrollments := newAgendaFixture(nil)

	agenda, err := svc.Family(context.Background(), "user-z", 8)
	require.NoError(t, err)
	assert.Zero(t, agenda.Total)
	assert.Empty(t, agenda.Days)
	assert.Zero(t, enrollments.calls)
}

func TestAgendaWindowBounds(t *testing.T) {
	svc, _ := newAgendaFixture(nil)

	_, err := svc.Admin(context.Background(), 32)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Admin(context.Background(), -1)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	agenda, err := svc.Admin(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-12", agenda.To)
}

func TestAgendaExport(t *testing.T) {
	svc, _ := newAgendaFixture(nil)

	csvExport, err := svc.Export(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Equal(t, "agenda_2026-01-05_2026-01-07.csv", csvExport.Filename)
	lines := strings.Split(strings.TrimSpace(string(csvExport.Body)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Fecha,Día,Hora,Tipo,Actividad,Alumnos", lines[0])
	assert.Equal(t, "2026-01-05,Lunes,16:00-17:20,Clase,Pintura,Ana; Bruno", lines[2])

	pdfExport, err := svc.Export(context.Background(), 3, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfExport.ContentType)
	assert.True(t, strings.HasPrefix(string(pdfExport.Body), "%PDF-"))

	_, err = svc.Export(context.Background(), 3, "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
