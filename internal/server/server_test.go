package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskmanager/internal/auth"
	domainerrors "taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/validation"
	"taskmanager/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPrefix = "/api/v1"

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Env = "test"
	cfg.JWTSecret = "test-secret"
	cfg.JWTExpiresIn = Duration(time.Hour)
	cfg.RateLimit = 0
	cfg.MetricsEnabled = false
	return cfg
}

func newTestAPI(t *testing.T) (*TaskAPI, *inmemory.Storage) {
	t.Helper()
	store := inmemory.NewStorage()
	api, err := NewTaskAPI(store, store, testConfig(), nil)
	require.NoError(t, err)
	return api, store
}

// call sends body as JSON, or verbatim when it is a string.
func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, testPrefix+path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func register(t *testing.T, h http.Handler, name, email string) (id, token string) {
	t.Helper()
	status, body := call(t, h, http.MethodPost, "/auth/register", "", obj{"name": name, "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, status, body)
	return body["user"].(map[string]any)["id"].(string), body["token"].(string)
}

func seedAdmin(t *testing.T, h http.Handler, store *inmemory.Storage) (id, token string) {
	t.Helper()
	hash, err := auth.HashPassword("adminpassword")
	require.NoError(t, err)
	admin := &models.User{Name: "administrator", Email: "admin@x.com", Password: hash, Role: models.RoleAdmin}
	require.NoError(t, store.CreateUser(context.Background(), admin))

	status, body := call(t, h, http.MethodPost, "/auth/login", "", obj{"email": "admin@x.com", "password": "adminpassword"})
	require.Equal(t, http.StatusOK, status, body)
	return admin.ID, body["token"].(string)
}

func createTask(t *testing.T, h http.Handler, token, title string) string {
	t.Helper()
	status, body := call(t, h, http.MethodPost, "/tasks", token, obj{
		"title":       title,
		"description": "a description that is long enough",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body["task"].(map[string]any)["id"].(string)
}

type obj = map[string]any

func TestNewTaskAPI(t *testing.T) {
	store := inmemory.NewStorage()

	_, err := NewTaskAPI(nil, store, testConfig(), nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.JWTSecret = ""
	_, err = NewTaskAPI(store, store, cfg, nil)
	assert.Error(t, err)
}

func TestUnknownRouteAndHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	status, body := call(t, api.Handler(), http.MethodGet, "/nothing/here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, MsgRouteNotFound, body["err"])

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesRequireLogin(t *testing.T) {
	api, _ := newTestAPI(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/users/some-id"},
		{http.MethodPatch, "/users/some-id"},
		{http.MethodDelete, "/users/some-id"},
		{http.MethodPost, "/users/me/delete"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/tasks/some-id"},
		{http.MethodPatch, "/tasks/some-id"},
		{http.MethodDelete, "/tasks/some-id"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			for _, token := range []string{"", "garbage"} {
				status, body := call(t, api.Handler(), tt.method, tt.path, token, nil)
				assert.Equal(t, http.StatusUnauthorized, status)
				assert.Equal(t, MsgUnauthorized, body["err"])
			}
		})
	}
}

func TestRegister(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	status, body := call(t, h, http.MethodPost, "/auth/register", "", obj{
		"name": "  alice12345 ", "email": "alice@x.com", "password": "password123", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice12345", user["name"])
	assert.Equal(t, string(models.RoleUser), user["role"])
	assert.NotContains(t, user, "password")

	tests := []struct {
		name string
		body any
		want struct {
			status int
			err    string
		}
	}{
		{
			name: "email in use",
			body: obj{"name": "someone-else", "email": "alice@x.com", "password": "password123"},
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgEmailInUse},
		},
		{
			name: "name in use",
			body: obj{"name": "alice12345", "email": "other@x.com", "password": "password123"},
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgNameInUse},
		},
		{
			name: "not an object",
			body: "[1, 2]",
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgObjectType},
		},
		{
			name: "broken json",
			body: "{",
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgObjectType},
		},
		{
			name: "empty body",
			body: nil,
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgNameRequired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, h, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, tt.want.status, status)
			assert.Equal(t, tt.want.err, body["err"])
		})
	}
}

func TestLogin(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	register(t, h, "alice12345", "alice@x.com")

	tests := []struct {
		name string
		body obj
		want struct {
			status int
			err    string
		}
	}{
		{
			name: "ok",
			body: obj{"email": "alice@x.com", "password": "password123"},
			want: struct {
				status int
				err    string
			}{http.StatusOK, ""},
		},
		{
			name: "wrong password",
			body: obj{"email": "alice@x.com", "password": "password124"},
			want: struct {
				status int
				err    string
			}{http.StatusBadRequest, validation.MsgPasswordIncorrect},
		},
		{
			name: "unknown email",
			body: obj{"email": "bob@x.com", "password": "password123"},
			want: struct {
				status int
				err    string
			}{http.StatusNotFound, validation.MsgUserNotFoundEmail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, h, http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, tt.want.status, status)
			if tt.want.err != "" {
				assert.Equal(t, tt.want.err, body["err"])
				assert.NotContains(t, body, "token")
				return
			}
			assert.NotEmpty(t, body["token"])
			assert.Equal(t, "alice@x.com", body["user"].(map[string]any)["email"])
		})
	}
}

func TestMeAndStaleToken(t *testing.T) {
	api, store := newTestAPI(t)
	h := api.Handler()
	id, token := register(t, h, "alice12345", "alice@x.com")

	status, body := call(t, h, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["user"].(map[string]any)["id"])
	assert.NotEmpty(t, body["token"])

	user, err := store.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	user.Email = "changed@x.com"
	require.NoError(t, store.UpdateUser(context.Background(), user))

	status, _ = call(t, h, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUsers(t *testing.T) {
	api, store := newTestAPI(t)
	h := api.Handler()
	aliceID, alice := register(t, h, "alice12345", "alice@x.com")
	bobID, bob := register(t, h, "bob1234567", "bob@x.com")
	_, admin := seedAdmin(t, h, store)

	status, body := call(t, h, http.MethodGet, "/users", alice, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, MsgForbidden, body["err"])

	status, body = call(t, h, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 3)

	status, body = call(t, h, http.MethodGet, "/users/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob1234567", body["user"].(map[string]any)["name"])

	status, body = call(t, h, http.MethodGet, "/users/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, validation.MsgUserNotFoundID, body["err"])

	status, _ = call(t, h, http.MethodPatch, "/users/"+bobID, alice, obj{"name": "renamed-bob"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, h, http.MethodPatch, "/users/"+bobID, admin, obj{"name": "renamed-bob"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, h, http.MethodPatch, "/users/"+aliceID, alice, obj{"name": "alice-renamed", "password": "newpassword123"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "alice-renamed", body["user"].(map[string]any)["name"])
	fresh := body["token"].(string)

	// the old token carries the old name
	status, _ = call(t, h, http.MethodGet, "/auth/me", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, h, http.MethodPost, "/auth/login", "", obj{"email": "alice@x.com", "password": "newpassword123"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, h, http.MethodDelete, "/users/"+aliceID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, body = call(t, h, http.MethodDelete, "/users/"+bobID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, bobID, body["user"].(map[string]any)["id"])

	status, _ = call(t, h, http.MethodGet, "/tasks", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, h, http.MethodGet, "/users/"+aliceID, fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeleteOwnUser(t *testing.T) {
	api, store := newTestAPI(t)
	h := api.Handler()
	id, token := register(t, h, "alice12345", "alice@x.com")
	createTask(t, h, token, "write the report")

	status, body := call(t, h, http.MethodPost, "/users/me/delete", token, obj{"password": "password124"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, validation.MsgPasswordIncorrect, body["err"])

	status, body = call(t, h, http.MethodPost, "/users/me/delete", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, validation.MsgPasswordRequired, body["err"])

	status, body = call(t, h, http.MethodPost, "/users/me/delete", token, obj{"password": "password123", "id": "someone-else"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["user"].(map[string]any)["id"])

	tasks, err := store.ListTasks(context.Background(), models.TaskFilter{UserID: id})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTasks(t *testing.T) {
	api, store := newTestAPI(t)
	h := api.Handler()
	aliceID, alice := register(t, h, "alice12345", "alice@x.com")
	_, bob := register(t, h, "bob1234567", "bob@x.com")
	_, admin := seedAdmin(t, h, store)

	status, body := call(t, h, http.MethodPost, "/tasks", alice, obj{
		"title": "short", "description": "a description that is long enough",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, validation.MsgTitleMin, body["err"])

	status, body = call(t, h, http.MethodPost, "/tasks", alice, obj{
		"title": "buy groceries", "description": "milk, eggs and a loaf of bread", "userId": "someone-else",
	})
	require.Equal(t, http.StatusCreated, status, body)
	task := body["task"].(map[string]any)
	taskID := task["id"].(string)
	assert.Equal(t, false, task["completed"])
	stored, err := store.GetTaskByID(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, aliceID, stored.UserID)

	createTask(t, h, bob, "bob's own task")

	status, body = call(t, h, http.MethodGet, "/tasks", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tasks"], 1)
	status, body = call(t, h, http.MethodGet, "/tasks", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tasks"], 2)

	status, _ = call(t, h, http.MethodGet, "/tasks/"+taskID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, h, http.MethodGet, "/tasks/"+taskID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = call(t, h, http.MethodGet, "/tasks/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, validation.MsgTaskNotFound, body["err"])

	status, _ = call(t, h, http.MethodPatch, "/tasks/"+taskID, bob, obj{"completed": true})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, h, http.MethodPatch, "/tasks/"+taskID, admin, obj{"completed": true})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = call(t, h, http.MethodPatch, "/tasks/"+taskID, alice, obj{"completed": "yes"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, validation.MsgCompletedType, body["err"])

	status, body = call(t, h, http.MethodPatch, "/tasks/"+taskID, alice, obj{"completed": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["task"].(map[string]any)["completed"])
	assert.Equal(t, "buy groceries", body["task"].(map[string]any)["title"])

	status, body = call(t, h, http.MethodDelete, "/tasks/"+taskID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, body = call(t, h, http.MethodDelete, "/tasks/"+taskID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, taskID, body["task"].(map[string]any)["id"])

	status, _ = call(t, h, http.MethodGet, "/tasks/"+taskID, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListTasksCompletedFilter(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	_, alice := register(t, h, "alice12345", "alice@x.com")
	done := createTask(t, h, alice, "first task")
	createTask(t, h, alice, "second task")
	status, _ := call(t, h, http.MethodPatch, "/tasks/"+done, alice, obj{"completed": true})
	require.Equal(t, http.StatusOK, status)

	tests := []struct {
		query string
		want  struct {
			status int
			count  int
		}
	}{
		{"", struct {
			status int
			count  int
		}{http.StatusOK, 2}},
		{"?completed=true", struct {
			status int
			count  int
		}{http.StatusOK, 1}},
		{"?completed=false", struct {
			status int
			count  int
		}{http.StatusOK, 1}},
		{"?completed=maybe", struct {
			status int
			count  int
		}{http.StatusBadRequest, 0}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			status, body := call(t, h, http.MethodGet, "/tasks"+tt.query, alice, nil)
			assert.Equal(t, tt.want.status, status)
			if tt.want.status != http.StatusOK {
				assert.Equal(t, validation.MsgCompletedFilter, body["err"])
				return
			}
			assert.Len(t, body["tasks"], tt.want.count)
		})
	}
}

type MockUserRepository struct {
	mock.Mock
	UserRepository
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func TestStoreFailureIsGeneric(t *testing.T) {
	store := inmemory.NewStorage()
	users := &MockUserRepository{UserRepository: store}
	users.On("GetUserByEmail", mock.Anything, "alice@x.com").
		Return(nil, fmt.Errorf("dial tcp 10.0.0.1:5432: connection refused"))

	api, err := NewTaskAPI(users, store, testConfig(), nil)
	require.NoError(t, err)

	status, body := call(t, api.Handler(), http.MethodPost, "/auth/login", "", obj{"email": "alice@x.com", "password": "password123"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, MsgInternal, body["err"])
	users.AssertExpectations(t)
}

func TestUniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	existing := &models.User{Name: "alice12345", Email: "alice@x.com", Password: "hash", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, existing))

	users := &MockUserRepository{UserRepository: store}
	users.On("GetUserByEmail", mock.Anything, "bob@x.com").Return(nil, domainerrors.ErrUserNotFound)
	users.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(domainerrors.ErrEmailInUse)
	users.On("UpdateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(domainerrors.ErrNameInUse)

	api, err := NewTaskAPI(users, store, testConfig(), nil)
	require.NoError(t, err)
	token, err := api.tokens.Issue(existing.Payload())
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   obj
		want   struct {
			status int
			err    string
		}
	}{
		{
			name:   "register loses the email race",
			method: http.MethodPost,
			path:   "/auth/register",
			body:   obj{"name": "bob1234567", "email": "bob@x.com", "password": "password123"},
			want: struct {
				status int
				err    string
			}{http.StatusConflict, validation.MsgEmailInUse},
		},
		{
			name:   "update loses the name race",
			method: http.MethodPatch,
			path:   "/users/" + existing.ID,
			token:  token,
			body:   obj{"name": "fresh-name-1"},
			want: struct {
				status int
				err    string
			}{http.StatusConflict, validation.MsgNameInUse},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, api.Handler(), tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want.status, status)
			assert.Equal(t, tt.want.err, body["err"])
			assert.NotContains(t, body, "token")
		})
	}
	users.AssertExpectations(t)
}

func TestLoginAccountRemovedAfterValidation(t *testing.T) {
	store := inmemory.NewStorage()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{ID: "user-1", Name: "alice12345", Email: "alice@x.com", Password: hash, Role: models.RoleUser}

	users := &MockUserRepository{UserRepository: store}
	users.On("GetUserByEmail", mock.Anything, "alice@x.com").Return(user, nil).Once()
	users.On("GetUserByEmail", mock.Anything, "alice@x.com").Return(nil, domainerrors.ErrUserNotFound).Once()

	api, err := NewTaskAPI(users, store, testConfig(), nil)
	require.NoError(t, err)

	status, body := call(t, api.Handler(), http.MethodPost, "/auth/login", "", obj{"email": "alice@x.com", "password": "password123"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, validation.MsgUserNotFoundEmail, body["err"])
	users.AssertExpectations(t)
}

func TestOverlongInputsAreBadRequests(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	id, token := register(t, h, "alice12345", "alice@x.com")
	longPassword := strings.Repeat("p", 80)
	longEmail := strings.Repeat("a", 60) + "@" + strings.Repeat(strings.Repeat("b", 63)+".", 4) + "com"

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   obj
		want   struct {
			err string
		}
	}{
		{
			name:   "register with 80 char password",
			method: http.MethodPost,
			path:   "/auth/register",
			body:   obj{"name": "bob1234567", "email": "bob@x.com", "password": longPassword},
			want:   struct{ err string }{validation.MsgPasswordMax},
		},
		{
			name:   "update with 80 char password",
			method: http.MethodPatch,
			path:   "/users/" + id,
			token:  token,
			body:   obj{"password": longPassword},
			want:   struct{ err string }{validation.MsgPasswordMax},
		},
		{
			name:   "register with email longer than the column",
			method: http.MethodPost,
			path:   "/auth/register",
			body:   obj{"name": "bob1234567", "email": longEmail, "password": "password123"},
			want:   struct{ err string }{validation.MsgEmailMax},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, h, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want.err, body["err"])
		})
	}

	status, _ := call(t, h, http.MethodPost, "/auth/login", "", obj{"email": "alice@x.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, status)
}
