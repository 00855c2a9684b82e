package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peoplehub/people-api/internal/models"
	appErrors "github.com/peoplehub/people-api/pkg/errors"
)

type mockUserRepo struct {
	mockAuthRepo
	listResp   []models.User
	listTotal  int
	listErr    error
	lastFilter models.UserFilter
	updated    *models.User
	deletedID  string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	return m.listResp, m.listTotal, m.listErr
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func newUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserServiceCreateSuccess(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Admin@Example.com",
		FullName: "Admin",
		Role:     models.RoleAdmin,
		Active:   true,
		Password: "password",
	}, "actor-1", models.LoginRequest{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "password", user.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	repo.add(&models.User{ID: "u1", Email: "taken@example.com"})
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "taken@example.com",
		FullName: "Dup",
		Role:     models.RoleUser,
		Password: "password",
	}, "actor-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateInvalidRole(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "user@example.com",
		FullName: "User",
		Role:     "SUPERVISOR",
		Password: "password",
	}, "actor-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateNotFound(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	svc := newUserService(repo)

	_, err := svc.Update(context.Background(), "missing", UpdateUserRequest{FullName: "X", Role: models.RoleUser}, "actor-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateKeepsActiveWhenAbsent(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	repo.add(&models.User{ID: "u1", Email: "user@example.com", FullName: "Old", Role: models.RoleUser, Active: true})
	svc := newUserService(repo)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{FullName: "New", Role: models.RoleAdmin}, "actor-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "New", user.FullName)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.Active)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	repo.add(&models.User{ID: "u1", Email: "user@example.com", Active: true})
	svc := newUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u1", "actor-1", models.LoginRequest{}))
	assert.Equal(t, "u1", repo.deletedID)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)
}

func TestUserServiceGetNotFound(t *testing.T) {
	repo := &mockUserRepo{mockAuthRepo: *newMockAuthRepo()}
	svc := newUserService(repo)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListPaginationDefaults(t *testing.T) {
	repo := &mockUserRepo{
		mockAuthRepo: *newMockAuthRepo(),
		listResp:     []models.User{{ID: "u1"}},
		listTotal:    42,
	}
	svc := newUserService(repo)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}
