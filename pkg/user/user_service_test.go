package user

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/internal/utils/testdb"
	"splay/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendMail(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}

func (m *fakeMailer) AppURL() string { return "http://localhost:8000" }

type fixture struct {
	db     *gorm.DB
	svc    UserService
	repo   UserRepository
	jwt    jwt.JWTService
	mailer *fakeMailer
}

func newFixture(t *testing.T) fixture {
	db := testdb.New(t)
	repo := NewUserRepository(db)
	jwtService := jwt.NewJWTServiceWithOptions(jwt.Options{
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		VerifyTTL:  24 * time.Hour,
	})
	mailer := &fakeMailer{}
	return fixture{
		db:     db,
		svc:    NewUserService(repo, jwtService, mailer, zap.NewNop()),
		repo:   repo,
		jwt:    jwtService,
		mailer: mailer,
	}
}

func register(t *testing.T, f fixture, email string) domain.AuthResponse {
	res, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Email:    email,
		Password: "password123",
		Name:     "Ann Example",
	})
	require.NoError(t, err)
	return res
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "  Ann@Example.com ")

	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, entities.TierFree, res.User.SubscriptionTier)
	assert.False(t, res.User.EmailVerified)
	assert.Equal(t, "bearer", res.Tokens.TokenType)
	assert.Equal(t, int64(900), res.Tokens.ExpiresIn)

	id, err := f.jwt.GetUserIDByToken(res.Tokens.AccessToken, jwt.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	stored, err := f.repo.GetUserByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, stored.IsActive)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ann@example.com", f.mailer.sent[0].to)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	register(t, f, "ann@example.com")

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Email:    "ANN@example.com",
		Password: "password123",
		Name:     "Ann",
	})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	res := register(t, f, "ann@example.com")
	assert.NotEmpty(t, res.Tokens.AccessToken)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	register(t, f, "ann@example.com")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, domain.LoginRequest{Email: "Ann@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	stored, err := f.repo.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, wrongPassword := f.svc.Login(ctx, domain.LoginRequest{Email: "ann@example.com", Password: "nope"})
	_, unknownEmail := f.svc.Login(ctx, domain.LoginRequest{Email: "bob@example.com", Password: "password123"})
	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginInactive(t *testing.T) {
	f := newFixture(t)
	register(t, f, "ann@example.com")
	ctx := context.Background()

	stored, err := f.repo.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	stored.IsActive = false
	require.NoError(t, f.repo.UpdateUser(ctx, stored))

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "ann@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "ann@example.com")
	ctx := context.Background()

	pair, err := f.svc.RefreshToken(ctx, domain.RefreshTokenRequest{RefreshToken: res.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.svc.RefreshToken(ctx, domain.RefreshTokenRequest{RefreshToken: res.Tokens.AccessToken})
	assert.ErrorIs(t, err, domain.ErrInvalidTokenType)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "ann@example.com")

	me, err := f.svc.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Example", me.Name)

	_, err = f.svc.Me(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func tokenFromMail(t *testing.T, body string) string {
	start := strings.Index(body, "token=")
	require.NotEqual(t, -1, start)
	rest := body[start+len("token="):]
	end := strings.IndexAny(rest, "\"<")
	require.NotEqual(t, -1, end)
	token, err := url.QueryUnescape(rest[:end])
	require.NoError(t, err)
	return token
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "ann@example.com")
	ctx := context.Background()

	token := tokenFromMail(t, f.mailer.sent[0].body)
	require.NoError(t, f.svc.VerifyEmail(ctx, token))

	me, err := f.svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, token), domain.ErrEmailAlreadyVerified)
	assert.ErrorIs(t, f.svc.SendVerificationEmail(ctx, res.User.ID), domain.ErrEmailAlreadyVerified)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, res.Tokens.AccessToken), domain.ErrInvalidTokenType)
}

func TestScanQuota(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "ann@example.com")
	ctx := context.Background()
	period := time.Now().UTC().Format("2006-01")

	for i := 0; i < 2; i++ {
		ok, err := f.repo.ConsumeScanQuota(ctx, res.User.ID, period, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := f.repo.ConsumeScanQuota(ctx, res.User.ID, period, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.repo.ReleaseScanQuota(ctx, res.User.ID, period))
	ok, err = f.repo.ConsumeScanQuota(ctx, res.User.ID, period, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// a new month restarts the counter
	ok, err = f.repo.ConsumeScanQuota(ctx, res.User.ID, "2999-01", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	stored, err := f.repo.GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ScansThisMonth)
	assert.Equal(t, "2999-01", stored.ScanPeriod)
}

func TestScanQuotaPremiumUnlimited(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "ann@example.com")
	ctx := context.Background()
	userID := uuid.MustParse(res.User.ID)

	start := time.Now().Add(-time.Hour)
	end := start.Add(domain.PremiumPeriod)
	sub := &entities.Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		Plan:               domain.PlanPremium,
		Status:             domain.SubscriptionLive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	require.NoError(t, f.db.Create(sub).Error)

	period := time.Now().UTC().Format("2006-01")
	for i := 0; i < 3; i++ {
		ok, err := f.repo.ConsumeScanQuota(ctx, res.User.ID, period, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// a lapsed period falls back to the free allowance
	lapsed := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(sub).Update("current_period_end", &lapsed).Error)
	ok, err := f.repo.ConsumeScanQuota(ctx, res.User.ID, period, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
