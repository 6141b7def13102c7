package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/vtc-admin-api/internal/dto"
	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/jobs"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

type mockDepartmentRepo struct {
	departments map[string]models.Department
	students    *mockStudentRepo
	deleted     []string
	err         error
}

func newMockDepartmentRepo(departments ...models.Department) *mockDepartmentRepo {
	m := &mockDepartmentRepo{departments: map[string]models.Department{}}
	for _, d := range departments {
		m.departments[d.ID] = d
	}
	return m
}

func (m *mockDepartmentRepo) sorted() []models.Department {
	out := make([]models.Department, 0, len(m.departments))
	for _, d := range m.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockDepartmentRepo) List(ctx context.Context, q listquery.Query) ([]models.DepartmentSummary, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	all := m.sorted()
	items := make([]models.DepartmentSummary, 0, len(all))
	for _, d := range all {
		count, _ := m.CountStudents(ctx, d.ID)
		items = append(items, models.DepartmentSummary{Department: d, StudentCount: count})
	}
	return window(items, q), len(items), nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.DepartmentSummary, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	count, _ := m.CountStudents(ctx, id)
	return &models.DepartmentSummary{Department: d, StudentCount: count}, nil
}

func (m *mockDepartmentRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.departments[id]
	return ok, nil
}

func (m *mockDepartmentRepo) ListActive(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	for _, d := range m.sorted() {
		if d.Status == models.DepartmentActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDepartmentRepo) CountStudents(ctx context.Context, id string) (int, error) {
	if m.students == nil {
		return 0, nil
	}
	count := 0
	for _, s := range m.students.students {
		if s.DepartmentID == id {
			count++
		}
	}
	return count, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, d *models.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now()
	m.departments[d.ID] = *d
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, d *models.Department) error {
	if _, ok := m.departments[d.ID]; !ok {
		return sql.ErrNoRows
	}
	m.departments[d.ID] = *d
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.departments[id]; !ok {
		return sql.ErrNoRows
	}
	if count, _ := m.CountStudents(ctx, id); count > 0 {
		return repository.ErrDepartmentInUse
	}
	delete(m.departments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentRepo struct {
	students    map[string]models.Student
	departments *mockDepartmentRepo
	lastQuery   listquery.Query
	createErr   error
	creates     int
	seq         int
}

func newMockStudentRepo(departments *mockDepartmentRepo) *mockStudentRepo {
	m := &mockStudentRepo{students: map[string]models.Student{}, departments: departments}
	if departments != nil {
		departments.students = m
	}
	return m
}

func (m *mockStudentRepo) record(s models.Student) models.StudentRecord {
	rec := models.StudentRecord{Student: s}
	if m.departments != nil {
		if d, ok := m.departments.departments[s.DepartmentID]; ok {
			rec.DepartmentName = sql.NullString{String: d.Name, Valid: true}
		}
	}
	return rec
}

func (m *mockStudentRepo) newestFirst() []models.StudentRecord {
	out := make([]models.StudentRecord, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, m.record(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *mockStudentRepo) List(ctx context.Context, q listquery.Query) ([]models.StudentRecord, int, error) {
	m.lastQuery = q
	all := m.newestFirst()
	return window(all, q), len(all), nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context, q listquery.Query) ([]models.StudentRecord, error) {
	m.lastQuery = q
	return m.newestFirst(), nil
}

func (m *mockStudentRepo) Recent(ctx context.Context, limit int) ([]models.StudentRecord, error) {
	all := m.newestFirst()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	rec := m.record(s)
	return &rec, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	for id, s := range m.students {
		if strings.EqualFold(s.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, s *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	m.creates++
	if s.ID == "" {
		s.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("student-%03d", m.seq))).String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Minute)
	}
	m.students[s.ID] = *s
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, s *models.Student) error {
	if _, ok := m.students[s.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[s.ID] = *s
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

// mockStatsRepo derives dashboard counters from the in-memory stores.
type mockStatsRepo struct {
	students    *mockStudentRepo
	departments *mockDepartmentRepo
	calls       int
}

func (m *mockStatsRepo) Statistics(ctx context.Context) (dto.Statistics, error) {
	m.calls++
	var stats dto.Statistics
	for _, s := range m.students.students {
		stats.TotalStudents++
		switch s.Gender {
		case models.GenderMale:
			stats.MaleStudents++
		case models.GenderFemale:
			stats.FemaleStudents++
		case models.GenderOther:
			stats.OtherStudents++
		}
	}
	for _, d := range m.departments.departments {
		if d.Status == models.DepartmentActive {
			stats.TotalDepartments++
		}
	}
	return stats, nil
}

type mockUserRepo struct {
	users []models.User
	calls []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].Email == email {
			return &m.users[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ListAfter(ctx context.Context, afterID string, limit int) ([]models.User, error) {
	m.calls = append(m.calls, afterID)
	sorted := append([]models.User(nil), m.users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	var out []models.User
	for _, u := range sorted {
		if u.ID > afterID && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockNotificationStore struct {
	mu        sync.Mutex
	rows      map[string]models.Notification
	failAfter int
	inserts   int
}

func newMockNotificationStore() *mockNotificationStore {
	return &mockNotificationStore{rows: map[string]models.Notification{}, failAfter: -1}
}

func (m *mockNotificationStore) Insert(ctx context.Context, n *models.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.inserts >= m.failAfter {
		m.failAfter = -1
		return false, appErrors.ErrInternal
	}
	m.inserts++
	if _, ok := m.rows[n.ID]; ok {
		return false, nil
	}
	m.rows[n.ID] = *n
	return true, nil
}

func (m *mockNotificationStore) ListForUser(ctx context.Context, userID string, q listquery.Query) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return window(out, q), len(out), nil
}

func (m *mockNotificationStore) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	m.rows[id] = n
	return nil
}

func (m *mockNotificationStore) perUser() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, n := range m.rows {
		out[n.UserID]++
	}
	return out
}

type recordingNotifier struct {
	created []models.Student
}

func (r *recordingNotifier) StudentCreated(ctx context.Context, student models.Student) {
	r.created = append(r.created, student)
}

type recordingInvalidator struct {
	patterns []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, pattern string) {
	r.patterns = append(r.patterns, pattern)
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func window[T any](items []T, q listquery.Query) []T {
	start := q.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + q.PerPage()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
