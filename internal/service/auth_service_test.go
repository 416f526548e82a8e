package service_test

import (
	"context"
	"testing"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/config"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) List(_ context.Context, includeInactive bool) ([]model.User, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if !u.Active && !includeInactive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Active = active
	return nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newAuthFixture() (service.AuthService, *stubUserRepo, *config.Config) {
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
	}
	repo := newStubUserRepo()
	return service.NewAuthService(repo, cfg), repo, cfg
}

func seedUser(t *testing.T, repo *stubUserRepo, username, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Name:         "Test User",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	repo.users[u.ID] = u
	return u
}

func TestLogin_Success(t *testing.T) {
	svc, repo, cfg := newAuthFixture()
	user := seedUser(t, repo, "maria", "s3cretpass", "cashier")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "s3cretpass"})
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), resp.User.ID)
	assert.Equal(t, "cashier", resp.User.Role)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// The access token carries the identity claims under our secret.
	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, "maria", claims["username"])
	assert.Equal(t, "cashier", claims["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(t, repo, "maria", "s3cretpass", "cashier")

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid credentials")
	assert.Equal(t, 400, apierror.StatusOf(err))
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "whatever"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := seedUser(t, repo, "maria", "s3cretpass", "cashier")
	user.Active = false

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "s3cretpass"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestRefresh_RoundTrip(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := seedUser(t, repo, "maria", "s3cretpass", "supervisor")

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "s3cretpass"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), refreshed.User.ID)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := seedUser(t, repo, "maria", "s3cretpass", "cashier")

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "s3cretpass"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateUser(context.Background(), user.ID))

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, 404, apierror.StatusOf(err))
}

func TestCreateUser_HashesPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()

	resp, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{
		Username: "jose",
		Name:     "Jose Perez",
		Password: "longenough",
		Role:     "admin",
	})
	require.NoError(t, err)

	stored := repo.users[uuid.MustParse(resp.ID)]
	require.NotNil(t, stored)
	assert.NotEqual(t, "longenough", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")))
}

func TestListUsers_ExcludesInactiveByDefault(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	seedUser(t, repo, "active1", "password1", "cashier")
	inactive := seedUser(t, repo, "gone", "password2", "cashier")
	inactive.Active = false

	visible, err := svc.ListUsers(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := svc.ListUsers(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeactivateReactivate(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := seedUser(t, repo, "maria", "s3cretpass", "cashier")

	require.NoError(t, svc.DeactivateUser(context.Background(), user.ID))
	assert.False(t, repo.users[user.ID].Active)

	require.NoError(t, svc.ReactivateUser(context.Background(), user.ID))
	assert.True(t, repo.users[user.ID].Active)
}
