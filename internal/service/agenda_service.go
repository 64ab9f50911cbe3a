package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/export"
)

const (
	agendaCachePrefix   = "agenda:"
	placementDuration   = 60 * time.Minute
	placementTitle      = "Cita de nivelación"
	agendaExportCSV     = "csv"
	agendaExportPDF     = "pdf"
	agendaExportHeaders = "Fecha,Día,Hora,Tipo,Actividad,Alumnos"
)

// AgendaCache caches admin agenda responses. A nil *AgendaCache is a no-op.
type AgendaCache struct {
	cache *CacheService
	ttl   time.Duration
}

// NewAgendaCache wraps a cache service for agenda payloads.
func NewAgendaCache(cache *CacheService, ttl time.Duration) *AgendaCache {
	return &AgendaCache{cache: cache, ttl: ttl}
}

func (c *AgendaCache) get(ctx context.Context, key string, dest *dto.AgendaResponse) bool {
	if c == nil {
		return false
	}
	return c.cache.Get(ctx, key, dest)
}

func (c *AgendaCache) set(ctx context.Context, key string, value *dto.AgendaResponse) {
	if c == nil {
		return
	}
	c.cache.Set(ctx, key, value, c.ttl)
}

// Invalidate drops every cached agenda.
func (c *AgendaCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.cache.Invalidate(ctx, agendaCachePrefix+"*")
}

type agendaEnrollmentReader interface {
	ListActive(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type agendaPlacementReader interface {
	ListPending(ctx context.Context, from, to time.Time, studentIDs []string) ([]models.PlacementDetail, error)
}

type agendaStudentReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Student, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// AgendaOptions bounds the agenda window.
type AgendaOptions struct {
	DefaultDays int
	MaxDays     int
}

// AgendaExport is a rendered agenda document.
type AgendaExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AgendaService merges class occurrences and placement appointments into a day-grouped view.
type AgendaService struct {
	enrollments agendaEnrollmentReader
	placements  agendaPlacementReader
	students    agendaStudentReader
	calendar    nonWorkingDayLister
	expander    *OccurrenceExpander
	cache       *AgendaCache
	renderers   map[string]datasetRenderer
	metrics     *MetricsService
	opts        AgendaOptions
	logger      *zap.Logger
}

// NewAgendaService constructs an AgendaService.
func NewAgendaService(
	enrollments agendaEnrollmentReader,
	placements agendaPlacementReader,
	students agendaStudentReader,
	calendar nonWorkingDayLister,
	expander *OccurrenceExpander,
	cache *AgendaCache,
	metrics *MetricsService,
	opts AgendaOptions,
	logger *zap.Logger,
) *AgendaService {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 8
	}
	if opts.MaxDays < opts.DefaultDays {
		opts.MaxDays = opts.DefaultDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgendaService{
		enrollments: enrollments,
		placements:  placements,
		students:    students,
		calendar:    calendar,
		expander:    expander,
		cache:       cache,
		renderers: map[string]datasetRenderer{
			agendaExportCSV: export.NewCSVExporter(),
			agendaExportPDF: export.NewPDFExporter(),
		},
		metrics: metrics,
		opts:    opts,
		logger:  logger,
	}
}

// Admin returns the agenda of every active enrollment and pending appointment.
// Occurrences of the same workshop at the same start are merged into one item.
func (s *AgendaService) Admin(ctx context.Context, days int) (*dto.AgendaResponse, error) {
	window, err := s.window(days)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%sadmin:%s:%s", agendaCachePrefix, models.DateKeyOf(window.Start), models.DateKeyOf(window.End))
	var cached dto.AgendaResponse
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	enrollments, err := s.enrollments.ListActive(ctx, models.EnrollmentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	resp, err := s.build(ctx, window, enrollments, nil, true)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, resp)
	return resp, nil
}

// Family returns the agenda of the students owned by userID, one item per enrollment occurrence.
func (s *AgendaService) Family(ctx context.Context, userID string, days int) (*dto.AgendaResponse, error) {
	window, err := s.window(days)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return s.assemble(window, nil), nil
	}
	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	enrollments, err := s.enrollments.ListActive(ctx, models.EnrollmentFilter{StudentIDs: ids})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return s.build(ctx, window, enrollments, ids, false)
}

// Export renders the admin agenda as csv or pdf.
func (s *AgendaService) Export(ctx context.Context, days int, format string) (*AgendaExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = agendaExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	agenda, err := s.Admin(ctx, days)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(agendaDataset(agenda))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}
	return &AgendaExport{
		Filename:    fmt.Sprintf("agenda_%s_%s.%s", agenda.From, agenda.To, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *AgendaService) window(days int) (models.Window, error) {
	if days == 0 {
		days = s.opts.DefaultDays
	}
	if days < 1 || days > s.opts.MaxDays {
		return models.Window{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must be between 1 and %d", s.opts.MaxDays))
	}
	return s.expander.ForwardWindow(days), nil
}

func (s *AgendaService) build(ctx context.Context, window models.Window, enrollments []models.EnrollmentDetail, studentIDs []string, grouped bool) (*dto.AgendaResponse, error) {
	loc := s.expander.Location()
	nonWorking, err := loadNonWorkingSet(ctx, s.calendar, window, loc)
	if err != nil {
		return nil, err
	}

	var items []dto.AgendaItem
	if grouped {
		items = s.groupedClasses(enrollments, window, nonWorking)
	} else {
		for _, enrollment := range enrollments {
			for occ := range s.expander.Expand(enrollment, window, nonWorking) {
				items = append(items, classItem(occ, occ.ID))
			}
		}
	}

	from := models.StartOfDay(window.Start.In(loc))
	to := models.StartOfDay(window.End.In(loc)).AddDate(0, 0, 1)
	placements, err := s.placements.ListPending(ctx, from, to, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement appointments")
	}
	today := s.expander.Today()
	for _, p := range placements {
		start := p.ScheduledAt.In(loc)
		if start.Before(today) {
			continue
		}
		items = append(items, dto.AgendaItem{
			ID:            p.ID,
			Type:          dto.AgendaItemPlacement,
			Title:         placementTitle,
			Start:         start,
			End:           start.Add(placementDuration),
			AppointmentID: p.ID,
			Attendees:     []dto.AgendaAttendee{{StudentID: p.StudentID, StudentName: p.StudentName}},
			Note:          p.Note,
		})
	}

	resp := s.assemble(window, items)
	s.metrics.ObserveAgendaItems(resp.Total)
	return resp, nil
}

func (s *AgendaService) groupedClasses(enrollments []models.EnrollmentDetail, window models.Window, nonWorking models.DateSet) []dto.AgendaItem {
	index := make(map[string]int)
	var items []dto.AgendaItem
	for _, enrollment := range enrollments {
		for occ := range s.expander.Expand(enrollment, window, nonWorking) {
			key := occ.WorkshopID + "|" + occ.Start.Format(time.RFC3339)
			attendee := dto.AgendaAttendee{StudentID: occ.StudentID, StudentName: occ.StudentName, Seat: occ.Seat, EnrollmentID: occ.EnrollmentID}
			if i, ok := index[key]; ok {
				items[i].Attendees = append(items[i].Attendees, attendee)
				if occ.End.After(items[i].End) {
					items[i].End = occ.End
				}
				continue
			}
			index[key] = len(items)
			item := classItem(occ, uuid.NewSHA1(occurrenceNamespace, []byte("group|"+key)).String())
			item.EnrollmentID = ""
			item.Attendees = []dto.AgendaAttendee{attendee}
			items = append(items, item)
		}
	}
	for i := range items {
		sort.SliceStable(items[i].Attendees, func(a, b int) bool {
			return items[i].Attendees[a].StudentName < items[i].Attendees[b].StudentName
		})
	}
	return items
}

func classItem(occ models.Occurrence, id string) dto.AgendaItem {
	return dto.AgendaItem{
		ID:           id,
		Type:         dto.AgendaItemClass,
		Title:        occ.Title,
		Start:        occ.Start,
		End:          occ.End,
		TimeRange:    occ.TimeRange,
		WorkshopID:   occ.WorkshopID,
		EnrollmentID: occ.EnrollmentID,
		Attendees: []dto.AgendaAttendee{{
			StudentID:    occ.StudentID,
			StudentName:  occ.StudentName,
			Seat:         occ.Seat,
			EnrollmentID: occ.EnrollmentID,
		}},
	}
}

// assemble sorts items by start, groups them per calendar date and counts today's items.
func (s *AgendaService) assemble(window models.Window, items []dto.AgendaItem) *dto.AgendaResponse {
	loc := s.expander.Location()
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		if items[i].Type != items[j].Type {
			return items[i].Type == dto.AgendaItemClass
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ID < items[j].ID
	})

	resp := &dto.AgendaResponse{
		From:  string(models.DateKeyOf(window.Start.In(loc))),
		To:    string(models.DateKeyOf(window.End.In(loc))),
		Days:  []dto.AgendaDay{},
		Total: len(items),
	}
	todayKey := models.DateKeyOf(s.expander.Today())
	for _, item := range items {
		date := item.Start.In(loc)
		key := string(models.DateKeyOf(date))
		if n := len(resp.Days); n == 0 || resp.Days[n-1].Date != key {
			resp.Days = append(resp.Days, dto.AgendaDay{Date: key, Day: models.WeekdayOf(date).Title(), Items: []dto.AgendaItem{}})
		}
		day := &resp.Days[len(resp.Days)-1]
		day.Items = append(day.Items, item)
		countItem(&day.Counts, item.Type)
		if models.DateKey(key) == todayKey {
			countItem(&resp.Today, item.Type)
		}
	}
	return resp
}

func countItem(counts *dto.AgendaCounts, kind dto.AgendaItemType) {
	if kind == dto.AgendaItemPlacement {
		counts.Appointments++
		return
	}
	counts.Classes++
}

func agendaDataset(agenda *dto.AgendaResponse) export.Dataset {
	headers := strings.Split(agendaExportHeaders, ",")
	data := export.Dataset{
		Title:    "Agenda de talleres",
		Subtitle: fmt.Sprintf("%s al %s", agenda.From, agenda.To),
		Headers:  headers,
	}
	for _, day := range agenda.Days {
		for _, item := range day.Items {
			names := make([]string, len(item.Attendees))
			for i, a := range item.Attendees {
				names[i] = a.StudentName
			}
			kind := "Clase"
			if item.Type == dto.AgendaItemPlacement {
				kind = "Cita"
			}
			data.Rows = append(data.Rows, map[string]string{
				headers[0]: day.Date,
				headers[1]: day.Day,
				headers[2]: item.Start.Format("15:04") + "-" + item.End.Format("15:04"),
				headers[3]: kind,
				headers[4]: item.Title,
				headers[5]: strings.Join(names, "; "),
			})
		}
	}
	return data
}
