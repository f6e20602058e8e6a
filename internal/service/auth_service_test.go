package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) && !u.DeletedAt.Valid {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) FindAll(_ context.Context, search string, page repository.Pagination) (*repository.PageResult[model.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []model.User
	for _, u := range r.users {
		if !u.DeletedAt.Valid && strings.Contains(strings.ToLower(u.FullName), strings.ToLower(search)) {
			items = append(items, u)
		}
	}
	return paged(items, page), nil
}

func (r *memUsers) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUsers) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *memUsers) Delete(_ context.Context, id uuid.UUID, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.DeletedAt.Valid = true
	u.DeletedBy = deletedBy
	r.users[id] = u
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Password = hashed
	r.users[id] = u
	return nil
}

func (r *memUsers) UpdatePrivileges(_ context.Context, id uuid.UUID, privileges []model.Privilege) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Privileges = privileges
	r.users[id] = u
	return nil
}

func (r *memUsers) UpdateTokenVersion(_ context.Context, id uuid.UUID, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.TokenVersion = version
	r.users[id] = u
	return nil
}

func (r *memUsers) UpdateLastSeen(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	now := time.Now()
	u.LastSeenAt = &now
	r.users[id] = u
	return nil
}

func seedUser(t *testing.T, users *memUsers, email, password string, active bool) model.User {
	t.Helper()
	u := model.User{
		Email:    email,
		FullName: "Nora Nurse",
		IsActive: active,
		Role:     &model.Role{Code: model.RoleEmployee},
		Privileges: []model.Privilege{
			{Code: model.PrivOrderView},
		},
	}
	require.NoError(t, u.SetPassword(password))
	require.NoError(t, users.Create(context.Background(), &u))
	return u
}

func newAuth() (*authService, *memUsers, *recorder) {
	users := &memUsers{users: map[uuid.UUID]model.User{}}
	events := &recorder{}
	svc := NewAuthService(users, jwt.NewManager("test-secret", time.Hour), events).(*authService)
	return svc, users, events
}

func TestLoginAndValidate(t *testing.T) {
	auth, users, _ := newAuth()
	seedUser(t, users, "nora@example.com", "s3cret!", true)
	ctx := context.Background()

	resp, err := auth.Login(ctx, &LoginRequest{Email: "nora@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, []string{model.PrivOrderView}, resp.Privileges)

	session, err := auth.ValidateToken(ctx, "Bearer "+resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "nora@example.com", session.User.Email)
}

func TestLoginFailures(t *testing.T) {
	auth, users, _ := newAuth()
	seedUser(t, users, "nora@example.com", "s3cret!", true)
	seedUser(t, users, "old@example.com", "s3cret!", false)
	ctx := context.Background()

	_, err := auth.Login(ctx, &LoginRequest{Email: "nora@example.com", Password: "wrong"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = auth.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "s3cret!"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = auth.Login(ctx, &LoginRequest{Email: "old@example.com", Password: "s3cret!"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = auth.Login(ctx, &LoginRequest{Email: "not-an-email"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSecondLoginReplacesFirstSession(t *testing.T) {
	auth, users, _ := newAuth()
	seedUser(t, users, "nora@example.com", "s3cret!", true)
	ctx := context.Background()
	creds := &LoginRequest{Email: "nora@example.com", Password: "s3cret!"}

	first, err := auth.Login(ctx, creds)
	require.NoError(t, err)
	second, err := auth.Login(ctx, creds)
	require.NoError(t, err)

	_, err = auth.ValidateToken(ctx, first.Token)
	assert.Equal(t, ErrSessionReplaced, err)
	_, err = auth.ValidateToken(ctx, second.Token)
	assert.NoError(t, err)
}

func TestIdleSessionTimesOut(t *testing.T) {
	auth, users, events := newAuth()
	u := seedUser(t, users, "nora@example.com", "s3cret!", true)
	ctx := context.Background()

	resp, err := auth.Login(ctx, &LoginRequest{Email: "nora@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(SessionIdleTimeout + time.Minute) }
	_, err = auth.ValidateToken(ctx, resp.Token)
	assert.Equal(t, ErrSessionTimeout, err)

	auth.now = time.Now
	require.NoError(t, auth.Heartbeat(ctx, u.ID))
	_, err = auth.ValidateToken(ctx, resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, []string{ws.EventUserStatus + ":"}, events.types())
}

func TestResetPasswordSignsOutSessions(t *testing.T) {
	auth, users, _ := newAuth()
	seedUser(t, users, "nora@example.com", "s3cret!", true)
	ctx := context.Background()

	resp, err := auth.Login(ctx, &LoginRequest{Email: "nora@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	err = auth.ResetPassword(ctx, &ResetPasswordRequest{Email: "nora@example.com", OldPassword: "nope", NewPassword: "another1"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, auth.ResetPassword(ctx, &ResetPasswordRequest{Email: "nora@example.com", OldPassword: "s3cret!", NewPassword: "another1"}))

	_, err = auth.ValidateToken(ctx, resp.Token)
	assert.Equal(t, ErrSessionReplaced, err)
	_, err = auth.Login(ctx, &LoginRequest{Email: "nora@example.com", Password: "another1"})
	assert.NoError(t, err)
}
