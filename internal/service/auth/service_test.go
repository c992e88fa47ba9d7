package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	store := repotest.NewStore()
	jwtSvc := auth.NewJWTService(testSecret, "clinic-api", time.Hour)
	svc := NewService(store.Users(), jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), opts, metrics.NewNoop(), nil)

	_, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Name: "Admin", Email: "Admin@Clinic.test", Password: "correct-horse", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginAndVerify(t *testing.T) {
	svc := newService(t, Options{})

	resp, err := svc.Login(context.Background(), &model.LoginRequest{Email: "admin@clinic.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	identity, err := svc.Verify(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, identity.UserID)
	assert.True(t, identity.IsAdmin())
	assert.NotEmpty(t, identity.TokenID)

	me, err := svc.Me(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, "admin@clinic.test", me.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newService(t, Options{})

	_, err := svc.Login(context.Background(), &model.LoginRequest{Email: "admin@clinic.test", Password: "wrong-horse"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))

	_, err = svc.Login(context.Background(), &model.LoginRequest{Email: "nobody@clinic.test", Password: "whatever1"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))

	_, err = svc.Login(context.Background(), &model.LoginRequest{Email: "not-an-email"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	svc := newService(t, Options{MaxFailedLogins: 2, LockoutDuration: time.Minute})
	bad := &model.LoginRequest{Email: "admin@clinic.test", Password: "wrong-horse"}

	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), bad)
		assert.Equal(t, ErrInvalidCredentials, err)
	}

	_, err := svc.Login(context.Background(), &model.LoginRequest{Email: "ADMIN@clinic.test", Password: "correct-horse"})
	assert.Equal(t, ErrAccountLocked, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newService(t, Options{})
	resp, err := svc.Login(context.Background(), &model.LoginRequest{Email: "admin@clinic.test", Password: "correct-horse"})
	require.NoError(t, err)

	identity, err := svc.Verify(context.Background(), resp.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), identity))

	_, err = svc.Verify(context.Background(), resp.Token)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
	assert.ErrorContains(t, err, "revoked")
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	svc := newService(t, Options{})

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Verify(context.Background(), token)
		assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized), token)
	}

	other := auth.NewJWTService("ffffffffffffffffffffffffffffffff", "clinic-api", time.Hour)
	forged, _, err := other.GenerateAccessToken(uuid.New(), "x@y.z", model.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), forged)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestRegister(t *testing.T) {
	svc := newService(t, Options{})

	_, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Name: "Dup", Email: "admin@clinic.test", Password: "another-pass", Role: model.RoleStaff,
	})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	_, err = svc.Register(context.Background(), &model.CreateUserRequest{
		Name: "Nurse", Email: "nurse@clinic.test", Password: "short", Role: model.RoleStaff,
	})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.Register(context.Background(), &model.CreateUserRequest{
		Name: "Nurse", Email: "nurse@clinic.test", Password: "long-enough", Role: "owner",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	u, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Name: "Nurse", Email: "nurse@clinic.test", Password: "long-enough", Role: model.RoleStaff,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", u.PasswordHash)
}
