package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vtc-admin-api/internal/dto"
	"github.com/noah-isme/vtc-admin-api/internal/middleware"
	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/service"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *listquery.Pagination  `json:"pagination"`
	Filters    *listquery.Filters     `json:"filters"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func perform(r *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Verified: true})
		c.Next()
	}
}

type fakeStudentSrv struct {
	lastParams listquery.Params
	lastInput  models.StudentInput
	lastID     string
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, params listquery.Params) (listquery.Page[models.StudentView], error) {
	f.lastParams = params
	q := listquery.Definition{Sortable: map[string]string{"name": "s.name"}, DefaultOrder: []string{"s.created_at DESC"}}.Prepare(params)
	items := []models.StudentView{{Student: models.Student{ID: "s1", Name: "Jane"}}}
	return listquery.NewPage(q, items, 11), f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.StudentView, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentView{Student: models.Student{ID: id}}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, input models.StudentInput) (*models.StudentView, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentView{Student: models.Student{ID: "new", Name: input.Name}}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, input models.StudentInput) (*models.StudentView, error) {
	f.lastID, f.lastInput = id, input
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentView{Student: models.Student{ID: id, Name: input.Name}}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeStudentSrv) Register(_ context.Context, input models.StudentInput) error {
	f.lastInput = input
	return f.err
}

type fakeExporter struct {
	format string
	err    error
}

func (f *fakeExporter) Students(_ context.Context, _ listquery.Params, format string) (*service.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{Filename: "students_20240305.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Name\nJane\n")}, nil
}

func studentRouter(students *fakeStudentSrv, exports *fakeExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(students, exports)
	r := gin.New()
	r.GET("/students", h.List)
	r.GET("/students/export", h.Export)
	r.GET("/students/:id", h.Get)
	r.POST("/students", h.Create)
	r.PUT("/students/:id", h.Update)
	r.DELETE("/students/:id", h.Delete)
	return r
}

func TestStudentHandlerListBindsParams(t *testing.T) {
	students := &fakeStudentSrv{}
	r := studentRouter(students, &fakeExporter{})

	rec := perform(r, http.MethodGet, "/students?search=+jane+&sort=name&direction=ASC&page=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listquery.Params{Search: "jane", Sort: "name", Direction: "ASC", Page: 2}, students.lastParams)

	env := decode(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.CurrentPage)
	assert.Equal(t, 2, env.Pagination.LastPage)
	require.NotNil(t, env.Filters)
	assert.Equal(t, listquery.Filters{Search: "jane", Sort: "name", Direction: "asc"}, *env.Filters)
}

func TestStudentHandlerListIgnoresBadPage(t *testing.T) {
	students := &fakeStudentSrv{}
	r := studentRouter(students, &fakeExporter{})

	rec := perform(r, http.MethodGet, "/students?page=abc", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, students.lastParams.Page)
	assert.Equal(t, 1, decode(t, rec).Pagination.CurrentPage)
}

func TestStudentHandlerCreateMessages(t *testing.T) {
	students := &fakeStudentSrv{}
	r := studentRouter(students, &fakeExporter{})

	rec := perform(r, http.MethodPost, "/students", map[string]string{"name": "Jane", "gender": "female"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Student created successfully.", decode(t, rec).Meta["message"])
	assert.Equal(t, models.GenderFemale, students.lastInput.Gender)

	rec = perform(r, http.MethodPut, "/students/s1", map[string]string{"name": "Jane"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Student updated successfully.", decode(t, rec).Meta["message"])
	assert.Equal(t, "s1", students.lastID)

	rec = perform(r, http.MethodDelete, "/students/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Student deleted successfully.", decode(t, rec).Meta["message"])
}

func TestStudentHandlerRejectsMalformedJSON(t *testing.T) {
	r := studentRouter(&fakeStudentSrv{}, &fakeExporter{})

	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerPropagatesServiceErrors(t *testing.T) {
	students := &fakeStudentSrv{err: appErrors.Validation(map[string]string{"email": "The email has already been taken."})}
	r := studentRouter(students, &fakeExporter{})

	rec := perform(r, http.MethodPost, "/students", map[string]string{"email": "taken@example.com"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "The email has already been taken.", env.Error.Fields["email"])

	students.err = appErrors.Clone(appErrors.ErrNotFound, "student not found")
	rec = perform(r, http.MethodGet, "/students/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerExport(t *testing.T) {
	exports := &fakeExporter{}
	r := studentRouter(&fakeStudentSrv{}, exports)

	rec := perform(r, http.MethodGet, "/students/export?format=csv&search=jane", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exports.format)
	assert.Equal(t, `attachment; filename="students_20240305.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Name\nJane\n", rec.Body.String())

	exports.err = appErrors.FieldError("format", "The selected format is invalid.")
	rec = perform(r, http.MethodGet, "/students/export?format=docx", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type fakeDepartmentSrv struct {
	active []models.Department
	err    error
}

func (f *fakeDepartmentSrv) List(_ context.Context, params listquery.Params) (listquery.Page[models.DepartmentSummary], error) {
	q := listquery.Definition{}.Prepare(params)
	return listquery.NewPage[models.DepartmentSummary](q, nil, 0), f.err
}

func (f *fakeDepartmentSrv) Get(_ context.Context, id string) (*models.DepartmentSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.DepartmentSummary{Department: models.Department{ID: id}, StudentCount: 3}, nil
}

func (f *fakeDepartmentSrv) Create(_ context.Context, input models.DepartmentInput) (*models.Department, error) {
	return &models.Department{ID: "d1", Name: input.Name}, f.err
}

func (f *fakeDepartmentSrv) Update(_ context.Context, id string, input models.DepartmentInput) (*models.Department, error) {
	return &models.Department{ID: id, Name: input.Name}, f.err
}

func (f *fakeDepartmentSrv) Delete(context.Context, string) error {
	return f.err
}

func (f *fakeDepartmentSrv) Active(context.Context) ([]models.Department, error) {
	return f.active, f.err
}

func TestDepartmentHandlerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	departments := &fakeDepartmentSrv{}
	h := NewDepartmentHandler(departments)
	r := gin.New()
	r.GET("/departments", h.List)
	r.GET("/departments/:id", h.Get)
	r.POST("/departments", h.Create)
	r.PUT("/departments/:id", h.Update)
	r.DELETE("/departments/:id", h.Delete)

	rec := perform(r, http.MethodGet, "/departments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Nil(t, env.Pagination.From)
	assert.Equal(t, "desc", env.Filters.Direction)

	rec = perform(r, http.MethodPost, "/departments", map[string]string{"name": "Welding"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Department created successfully.", decode(t, rec).Meta["message"])

	rec = perform(r, http.MethodPut, "/departments/d1", map[string]string{"name": "Welding"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Department updated successfully.", decode(t, rec).Meta["message"])

	rec = perform(r, http.MethodDelete, "/departments/d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Department deleted successfully.", decode(t, rec).Meta["message"])

	departments.err = appErrors.Clone(appErrors.ErrConflict, "Department still has 3 student(s) and cannot be deleted.")
	rec = perform(r, http.MethodDelete, "/departments/d1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegistrationHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	departments := &fakeDepartmentSrv{}
	students := &fakeStudentSrv{}
	h := NewRegistrationHandler(departments, students)
	r := gin.New()
	r.GET("/public/departments", h.Departments)
	r.POST("/public/apply", h.Apply)

	rec := perform(r, http.MethodGet, "/public/departments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))

	rec = perform(r, http.MethodPost, "/public/apply", map[string]string{"name": "Jane", "email": "jane@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, applicationReceived, env.Meta["message"])
	assert.Empty(t, env.Data)
	assert.Equal(t, "jane@example.com", students.lastInput.Email)

	students.err = appErrors.FieldError("department_id", "The selected department id is invalid.")
	rec = perform(r, http.MethodPost, "/public/apply", map[string]string{"name": "Jane"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type fakeDashboardSrv struct {
	resp *dto.DashboardResponse
	hit  bool
	err  error
}

func (f *fakeDashboardSrv) Summary(context.Context) (*dto.DashboardResponse, bool, error) {
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{
		resp: &dto.DashboardResponse{Statistics: dto.Statistics{TotalStudents: 10, MaleStudents: 5}, RecentStudents: []models.StudentView{}},
		hit:  true,
	}
	r := gin.New()
	r.GET("/dashboard", NewDashboardHandler(srv).Summary)

	rec := perform(r, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	stats := body["statistics"].(map[string]interface{})
	assert.EqualValues(t, 10, stats["totalStudents"])
	assert.EqualValues(t, 5, stats["maleStudents"])

	srv.err = appErrors.ErrInternal
	rec = perform(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeAuthSrv struct {
	lastUser string
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	f.lastUser = userID
	return &models.UserInfo{ID: userID}, nil
}

func TestAuthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", withUser("user-01"), h.Me)
	r.GET("/anonymous/me", h.Me)

	rec := perform(r, http.MethodPost, "/auth/login", models.LoginRequest{Email: "a@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perform(r, http.MethodPost, "/auth/login", models.LoginRequest{Email: "a@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-01", srv.lastUser)

	rec = perform(r, http.MethodGet, "/anonymous/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeNotificationSrv struct {
	page     int
	userID   string
	markErr  error
	markedID string
}

func (f *fakeNotificationSrv) List(_ context.Context, userID string, page int) (listquery.Page[models.Notification], error) {
	f.userID, f.page = userID, page
	q := listquery.Definition{}.Prepare(listquery.Params{Page: page})
	return listquery.NewPage(q, []models.Notification{{ID: "n1", UserID: userID}}, 1), nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, id, userID string) error {
	f.markedID, f.userID = id, userID
	return f.markErr
}

func TestNotificationHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeNotificationSrv{}
	h := NewNotificationHandler(srv)
	r := gin.New()
	r.Use(withUser("user-02"))
	r.GET("/notifications", h.List)
	r.POST("/notifications/:id/read", h.MarkRead)

	rec := perform(r, http.MethodGet, "/notifications?page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-02", srv.userID)
	assert.Equal(t, 1, decode(t, rec).Pagination.Total)

	rec = perform(r, http.MethodGet, "/notifications?page=%20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, srv.page)

	rec = perform(r, http.MethodGet, "/notifications?page=%203%20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, srv.page)

	rec = perform(r, http.MethodPost, "/notifications/n1/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "n1", srv.markedID)

	srv.markErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	rec = perform(r, http.MethodPost, "/notifications/n9/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
	})
	broken := NewMetricsHandler(nil, map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	r := gin.New()
	r.GET("/ready", healthy.Ready)
	r.GET("/broken/ready", broken.Ready)
	r.GET("/health", healthy.Health)
	r.GET("/metrics", healthy.Prometheus)
	r.GET("/broken/metrics", broken.Prometheus)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health", nil).Code)

	rec := perform(r, http.MethodGet, "/broken/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = perform(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")

	assert.Equal(t, http.StatusServiceUnavailable, perform(r, http.MethodGet, "/broken/metrics", nil).Code)
}
