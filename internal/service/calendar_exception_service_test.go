package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type fakeCalendarStore struct {
	mu   sync.Mutex
	days map[models.DateKey]models.NonWorkingDay
}

func newFakeCalendarStore(days ...models.NonWorkingDay) *fakeCalendarStore {
	store := &fakeCalendarStore{days: map[models.DateKey]models.NonWorkingDay{}}
	for _, d := range days {
		store.days[models.DateKeyOf(d.Date)] = d
	}
	return store
}

func (f *fakeCalendarStore) ListBetween(_ context.Context, from, to time.Time) ([]models.NonWorkingDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NonWorkingDay
	for _, d := range f.days {
		if !d.Date.Before(from) && d.Date.Before(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeCalendarStore) FindOnDate(_ context.Context, dayStart, _ time.Time) (*models.NonWorkingDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.days[models.DateKeyOf(dayStart)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (f *fakeCalendarStore) Upsert(_ context.Context, day *models.NonWorkingDay, dayStart, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.DateKeyOf(dayStart)
	existing, ok := f.days[key]
	if ok {
		existing.Reason = day.Reason
		f.days[key] = existing
		return false, nil
	}
	day.ID = "nwd-" + string(key)
	f.days[key] = *day
	return true, nil
}

func (f *fakeCalendarStore) DeleteBetween(_ context.Context, dayStart, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.DateKeyOf(dayStart)
	if _, ok := f.days[key]; !ok {
		return 0, nil
	}
	delete(f.days, key)
	return 1, nil
}

type weekdayEnrollmentStub map[models.Weekday][]models.EnrollmentDetail

func (s weekdayEnrollmentStub) ListActiveByWeekday(_ context.Context, day models.Weekday) ([]models.EnrollmentDetail, error) {
	return s[day], nil
}

// fakeCreditStore keeps credits unique per (enrollment, kind, origin date).
type fakeCreditStore struct {
	mu      sync.Mutex
	credits []*models.MakeUpCredit
	fail    error
}

func (f *fakeCreditStore) CreateIfAbsent(_ context.Context, credit *models.MakeUpCredit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return false, f.fail
	}
	for _, c := range f.credits {
		if c.EnrollmentID != nil && credit.EnrollmentID != nil && *c.EnrollmentID == *credit.EnrollmentID &&
			c.Kind == credit.Kind && models.DateKeyOf(*c.OriginDate) == models.DateKeyOf(*credit.OriginDate) {
			return false, nil
		}
	}
	copied := *credit
	copied.ID = fmt.Sprintf("cr-%d", len(f.credits)+1)
	f.credits = append(f.credits, &copied)
	return true, nil
}

func (f *fakeCreditStore) FindByID(_ context.Context, id string) (*models.MakeUpCredit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.credits {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCreditStore) ListByStudent(_ context.Context, studentID string, used bool) ([]models.MakeUpCreditDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MakeUpCreditDetail
	for _, c := range f.credits {
		if c.StudentID == studentID && c.Used == used {
			out = append(out, models.MakeUpCreditDetail{MakeUpCredit: *c})
		}
	}
	return out, nil
}

func (f *fakeCreditStore) MarkUsed(_ context.Context, id, workshopID string, date time.Time, block string, usedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.credits {
		if c.ID != id {
			continue
		}
		if c.Used {
			return false, nil
		}
		c.Used = true
		c.ScheduledDate = &date
		c.ScheduledBlock = &block
		c.UsedAt = &usedAt
		if c.WorkshopID == nil {
			c.WorkshopID = &workshopID
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeCreditStore) byKind(kind models.CreditKind) []*models.MakeUpCredit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MakeUpCredit
	for _, c := range f.credits {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type studentBatchStub map[string]models.Student

func (s studentBatchStub) FindByIDs(_ context.Context, ids []string) ([]models.Student, error) {
	out := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if st, ok := s[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	notified  []string
	emailed   []string
	failEmail map[string]bool
}

func (r *recordingNotifier) Notify(_ context.Context, userID, _, _ string, _ models.NotificationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, userID)
	return nil
}

func (r *recordingNotifier) SendEmail(_ context.Context, to, _, _ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emailed = append(r.emailed, to)
	return !r.failEmail[to]
}

func mondayEnrollments() weekdayEnrollmentStub {
	first := regularEnrollment("e1", "LUNES, MIERCOLES", "16:00-17:20")
	first.StudentID, first.StudentUserID = "stu-a", "user-a"
	second := regularEnrollment("e2", "LUNES", "17:30-18:50")
	second.StudentID, second.StudentUserID, second.WorkshopID = "stu-a", "user-a", "w-2"
	third := regularEnrollment("e3", "LUNES", "16:00-17:20")
	third.StudentID, third.StudentUserID = "stu-b", "user-b"
	return weekdayEnrollmentStub{models.Lunes: {first, second, third}}
}

type calendarFixture struct {
	svc      *CalendarExceptionService
	calendar *fakeCalendarStore
	credits  *fakeCreditStore
	notifier *recordingNotifier
}

func newCalendarFixture(students studentBatchStub, days ...models.NonWorkingDay) calendarFixture {
	f := calendarFixture{
		calendar: newFakeCalendarStore(days...),
		credits:  &fakeCreditStore{},
		notifier: &recordingNotifier{failEmail: map[string]bool{}},
	}
	f.svc = NewCalendarExceptionService(f.calendar, mondayEnrollments(), f.credits, students, f.notifier, nil, nil, lima, nil, nil).
		WithClock(fixedClock(time.Date(2026, time.January, 2, 10, 0, 0, 0, lima)))
	return f
}

func TestDeclareIssuesOneCreditPerEnrollment(t *testing.T) {
	f := newCalendarFixture(nil)

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Feriado", AddCredit: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Lunes", summary.Day)
	assert.Equal(t, 3, summary.Affected)
	assert.Equal(t, 3, summary.CreditsCreated)
	assert.Equal(t, 0, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsFailed)
	assert.Equal(t, 2, summary.StudentsNotified)
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, f.notifier.notified)
	assert.Empty(t, f.notifier.emailed)

	credits := f.credits.byKind(models.CreditKindCompensation)
	require.Len(t, credits, 3)
	for _, c := range credits {
		assert.False(t, c.Used)
		assert.Equal(t, models.DateKey("2026-01-05"), models.DateKeyOf(*c.OriginDate))
		assert.Contains(t, c.Reason, "Feriado")
	}
}

func TestDeclareTwiceDoesNotDuplicateCredits(t *testing.T) {
	f := newCalendarFixture(nil)
	req := DeclareNonWorkingDayRequest{Date: "2026-01-05", Reason: "Feriado", AddCredit: true}

	_, err := f.svc.Declare(context.Background(), req)
	require.NoError(t, err)
	req.Reason = "Feriado nacional"
	summary, err := f.svc.Declare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.CreditsCreated)
	assert.Len(t, f.credits.byKind(models.CreditKindCompensation), 3)
	stored := f.calendar.days["2026-01-05"]
	assert.Equal(t, "Feriado nacional", stored.Reason)
}

func TestDeclareCountsEmailFailures(t *testing.T) {
	students := studentBatchStub{
		"stu-a": {ID: "stu-a", Email: "a@example.com"},
		"stu-b": {ID: "stu-b", Email: "b@example.com"},
	}
	f := newCalendarFixture(students)
	f.notifier.failEmail["b@example.com"] = true

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Mantenimiento", SendEmail: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.CreditsCreated)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, f.notifier.emailed)
}

func TestDeclareStudentWithoutEmailCountsAsFailed(t *testing.T) {
	f := newCalendarFixture(studentBatchStub{"stu-a": {ID: "stu-a", Email: "a@example.com"}})

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Mantenimiento", SendEmail: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
}

func TestDeclareCreditErrorsDoNotAbort(t *testing.T) {
	f := newCalendarFixture(nil)
	f.credits.fail = errors.New("db down")

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Feriado", AddCredit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CreditsCreated)
	assert.Equal(t, 2, summary.StudentsNotified)
}

func TestDeclareWithTransferSchedulesUsedCredits(t *testing.T) {
	f := newCalendarFixture(nil)
	target := "2026-01-09"

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Feriado", TransferTo: &target,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TransfersCreated)

	transfers := f.credits.byKind(models.CreditKindTransfer)
	require.Len(t, transfers, 3)
	blocks := map[string]string{}
	for _, c := range transfers {
		assert.True(t, c.Used)
		assert.Equal(t, models.DateKey(target), models.DateKeyOf(*c.ScheduledDate))
		blocks[*c.EnrollmentID] = *c.ScheduledBlock
	}
	assert.Equal(t, "16:00-17:20", blocks["e1"])
	assert.Equal(t, "17:30-18:50", blocks["e2"])
}

func TestDeclareRejectsTransferOntoNonWorkingDay(t *testing.T) {
	closed, _ := models.ParseDate("2026-01-09", lima)
	f := newCalendarFixture(nil, models.NonWorkingDay{Date: closed, Reason: "Aniversario"})
	target := "2026-01-09"

	_, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Feriado", TransferTo: &target,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNonWorkingDay))
	assert.Contains(t, err.Error(), "Aniversario")
	_, stored := f.calendar.days["2026-01-05"]
	assert.False(t, stored)
}

func TestDeclareRejectsTransferToSameDate(t *testing.T) {
	f := newCalendarFixture(nil)
	target := "2026-01-05"

	_, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-05", Reason: "Feriado", TransferTo: &target,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDeclareValidatesPayload(t *testing.T) {
	f := newCalendarFixture(nil)

	_, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{Date: "05/01/2026", Reason: "x"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{Date: "2026-01-05"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDeclareDayWithoutClasses(t *testing.T) {
	f := newCalendarFixture(nil)

	summary, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{
		Date: "2026-01-06", Reason: "Inventario", AddCredit: true, SendEmail: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Martes", summary.Day)
	assert.Zero(t, summary.Affected)
	assert.Empty(t, f.notifier.notified)
}

func TestRevertNonWorkingDay(t *testing.T) {
	f := newCalendarFixture(nil)
	_, err := f.svc.Declare(context.Background(), DeclareNonWorkingDayRequest{Date: "2026-01-05", Reason: "Feriado", AddCredit: true})
	require.NoError(t, err)

	result, err := f.svc.Revert(context.Background(), "2026-01-05")
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.Len(t, f.credits.byKind(models.CreditKindCompensation), 3)

	result, err = f.svc.Revert(context.Background(), "2026-01-05")
	require.NoError(t, err)
	assert.False(t, result.Removed)

	_, err = f.svc.Revert(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestListNonWorkingDaysDefaultsToUpcomingMonths(t *testing.T) {
	inRange, _ := models.ParseDate("2026-03-20", lima)
	outOfRange, _ := models.ParseDate("2026-05-01", lima)
	f := newCalendarFixture(nil,
		models.NonWorkingDay{Date: inRange, Reason: "A"},
		models.NonWorkingDay{Date: outOfRange, Reason: "B"},
	)

	days, err := f.svc.List(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "A", days[0].Reason)

	days, err = f.svc.List(context.Background(), "2026-04-01", "2026-05-01")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "B", days[0].Reason)

	_, err = f.svc.List(context.Background(), "2026-05-02", "2026-05-01")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
