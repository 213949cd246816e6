package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/config"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/db"
	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/dto"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/handlers"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/logging"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/repo"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newRouter(t *testing.T, r repo.TodoRepo) *gin.Engine {
	t.Helper()
	svc := service.NewTodoService(r, nil,
		service.WithClock(func() time.Time { return now }),
		service.WithLogger(logging.Discard()),
	)
	h := handlers.NewTodoHandler(svc, logging.Discard())
	engine := gin.New()
	api := engine.Group("/api")
	api.POST("/todos", h.Create)
	api.GET("/todos", h.List)
	api.GET("/todos/status", h.ListByStatus)
	api.GET("/todos/search", h.Search)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.PATCH("/todos/:id/complete", h.Complete)
	api.DELETE("/todos/:id", h.Delete)
	return engine
}

func newSQLiteRepo(t *testing.T) repo.TodoRepo {
	t.Helper()
	cfg := config.DBConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 1,
	}
	gdb, err := db.Open(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	m, err := db.NewMigrator(gdb, config.DriverSQLite, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))
	return repo.NewGormTodoRepo(gdb)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeTodo(t *testing.T, w *httptest.ResponseRecorder) dto.TodoResponse {
	t.Helper()
	var out dto.TodoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []dto.TodoResponse {
	t.Helper()
	var out []dto.TodoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTodoLifecycle(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	w := do(t, router, http.MethodPost, "/api/todos",
		`{"title":"Buy Milk","description":"2l","completed":false}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeTodo(t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy Milk", created.Title)
	assert.False(t, created.Completed)
	assert.True(t, now.Equal(created.CreatedAt))
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	path := "/api/todos/" + itoa(created.ID)

	w = do(t, router, http.MethodPatch, path+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeTodo(t, w).Completed)

	w = do(t, router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeTodo(t, w).Completed)

	w = do(t, router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCreateIgnoresClientFields(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	w := do(t, router, http.MethodPost, "/api/todos",
		`{"id":77,"title":"x","description":"","createdAt":"2000-01-01T00:00:00Z","updatedAt":"2000-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	got := decodeTodo(t, w)
	assert.NotEqual(t, int64(77), got.ID)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, now.Equal(got.UpdatedAt))
}

func TestCreateAcceptsZonelessTimestamps(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	w := do(t, router, http.MethodPost, "/api/todos",
		`{"title":"x","description":"","createdAt":"2024-01-01T10:00:00","updatedAt":"2024-01-01T10:00:00"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, now.Equal(decodeTodo(t, w).CreatedAt))
}

func TestCreateBadBody(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	for name, body := range map[string]string{
		"malformed":           `{"title":`,
		"missing title":       `{"description":"d"}`,
		"empty title":         `{"title":"","description":"d"}`,
		"missing description": `{"title":"t"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/todos", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestListEmptyIsArray(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	for _, path := range []string{"/api/todos", "/api/todos/status?completed=true", "/api/todos/search?title=zzz"} {
		w := do(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `[]`, w.Body.String(), path)
	}
}

func TestStatusAndSearch(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))
	for _, body := range []string{
		`{"title":"Buy Milk","description":"","completed":false}`,
		`{"title":"Write report","description":"","completed":true}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/todos", body).Code)
	}

	w := do(t, router, http.MethodGet, "/api/todos/status?completed=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	done := decodeList(t, w)
	require.Len(t, done, 1)
	assert.Equal(t, "Write report", done[0].Title)

	w = do(t, router, http.MethodGet, "/api/todos/search?title=milk", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decodeList(t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Buy Milk", found[0].Title)

	w = do(t, router, http.MethodGet, "/api/todos/search?title=", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)
}

func TestQueryParamErrors(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	for _, path := range []string{
		"/api/todos/status",
		"/api/todos/status?completed=maybe",
		"/api/todos/search",
	} {
		w := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestUpdate(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))
	w := do(t, router, http.MethodPost, "/api/todos", `{"title":"old","description":"d"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeTodo(t, w)

	w = do(t, router, http.MethodPut, "/api/todos/"+itoa(created.ID),
		`{"id":999,"title":"new","description":"","completed":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeTodo(t, w)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "new", got.Title)
	assert.True(t, got.Completed)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	w = do(t, router, http.MethodGet, "/api/todos/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissingIDs(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/todos/42", ""},
		{http.MethodGet, "/api/todos/0", ""},
		{http.MethodPut, "/api/todos/42", `{"title":"t","description":"d"}`},
		{http.MethodPatch, "/api/todos/42/complete", ""},
		{http.MethodDelete, "/api/todos/42", ""},
	}
	for _, tc := range cases {
		w := do(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
		assert.Empty(t, w.Body.String())
	}
}

func TestInvalidID(t *testing.T) {
	router := newRouter(t, newSQLiteRepo(t))

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := do(t, router, method, "/api/todos/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := do(t, router, http.MethodPatch, "/api/todos/1.5/complete", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// brokenRepo fails every call.
type brokenRepo struct{ err error }

func (b brokenRepo) Insert(context.Context, dom.Todo) (dom.Todo, error) { return dom.Todo{}, b.err }
func (b brokenRepo) InsertAll(context.Context, []dom.Todo) error        { return b.err }
func (b brokenRepo) FindByID(context.Context, int64) (dom.Todo, bool, error) {
	return dom.Todo{}, false, b.err
}
func (b brokenRepo) FindAll(context.Context) ([]dom.Todo, error)               { return nil, b.err }
func (b brokenRepo) FindByCompleted(context.Context, bool) ([]dom.Todo, error) { return nil, b.err }
func (b brokenRepo) FindByTitleContains(context.Context, string) ([]dom.Todo, error) {
	return nil, b.err
}
func (b brokenRepo) Update(context.Context, dom.Todo) error { return b.err }
func (b brokenRepo) Delete(context.Context, int64) error    { return b.err }
func (b brokenRepo) Count(context.Context) (int64, error)   { return 0, b.err }

func TestStoreFailureIs500(t *testing.T) {
	router := newRouter(t, brokenRepo{err: errors.New("connection refused")})

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/todos", `{"title":"t","description":"d"}`},
		{http.MethodGet, "/api/todos", ""},
		{http.MethodGet, "/api/todos/1", ""},
		{http.MethodGet, "/api/todos/status?completed=false", ""},
		{http.MethodGet, "/api/todos/search?title=a", ""},
		{http.MethodPut, "/api/todos/1", `{"title":"t","description":"d"}`},
		{http.MethodPatch, "/api/todos/1/complete", ""},
		{http.MethodDelete, "/api/todos/1", ""},
	}
	for _, tc := range cases {
		w := do(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.method+" "+tc.path)
		assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
