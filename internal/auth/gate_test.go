package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"academy-quiz-service/internal/auth"
	"academy-quiz-service/internal/infra/memory"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "Munitions2025"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newGate(t *testing.T, cfg auth.Config) (*auth.Gate, *memory.AuthStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := memory.NewAuthStore()
	cfg.Password = password
	cfg.BcryptCost = bcrypt.MinCost
	g := auth.NewGateWithClock(store, cfg, nil, c.Now)
	require.NoError(t, g.Init(context.Background()))
	return g, store, c
}

func login(g *auth.Gate, pass, code string) (auth.Session, error) {
	return g.Login(context.Background(), auth.LoginRequest{Username: "admin", Password: pass, Code: code, IPAddress: "10.0.0.1"})
}

func TestInitSeedsOnce(t *testing.T) {
	g, store, _ := newGate(t, auth.Config{})
	cred, err := store.LoadCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", cred.Username)
	assert.NotEqual(t, password, cred.PasswordHash)

	require.NoError(t, g.Init(context.Background()))
	again, _ := store.LoadCredential(context.Background())
	assert.Equal(t, cred.PasswordHash, again.PasswordHash)
}

func TestInitRequiresPassword(t *testing.T) {
	g := auth.NewGate(memory.NewAuthStore(), auth.Config{}, nil)
	assert.ErrorIs(t, g.Init(context.Background()), auth.ErrPasswordRequired)
}

func TestLockoutAfterThreeFailures(t *testing.T) {
	ctx := context.Background()
	g, store, c := newGate(t, auth.Config{})

	for i := 0; i < 2; i++ {
		_, err := login(g, "wrong", "")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	lock, _ := g.Lockout(ctx)
	assert.Equal(t, 2, lock.FailedAttempts)
	assert.True(t, lock.LockedUntil.IsZero())

	_, err := login(g, "wrong", "")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	lock, _ = g.Lockout(ctx)
	assert.Equal(t, c.Now().Add(15*time.Minute), lock.LockedUntil)

	// correct password is still rejected while locked, without counting
	_, err = login(g, password, "")
	require.ErrorIs(t, err, auth.ErrLocked)
	lock, _ = g.Lockout(ctx)
	assert.Equal(t, 3, lock.FailedAttempts)

	c.Advance(15*time.Minute + time.Second)
	lock, _ = g.Lockout(ctx)
	assert.Equal(t, 0, lock.FailedAttempts)
	assert.False(t, lock.Locked(c.Now()))

	session, err := login(g, password, "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	entries, err := store.AccessLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.False(t, entries[0].Success)
	assert.True(t, entries[3].Success)
	assert.Equal(t, "10.0.0.1", entries[3].IPAddress)
}

func TestSuccessResetsCounter(t *testing.T) {
	g, _, _ := newGate(t, auth.Config{})
	_, _ = login(g, "wrong", "")
	_, _ = login(g, "wrong", "")
	_, err := login(g, password, "")
	require.NoError(t, err)

	lock, _ := g.Lockout(context.Background())
	assert.Equal(t, 0, lock.FailedAttempts)
}

func TestUnknownUsernameCountsAsFailure(t *testing.T) {
	g, _, _ := newGate(t, auth.Config{})
	_, err := g.Login(context.Background(), auth.LoginRequest{Username: "root", Password: password})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	lock, _ := g.Lockout(context.Background())
	assert.Equal(t, 1, lock.FailedAttempts)
}

func TestFixedSessionExpires(t *testing.T) {
	ctx := context.Background()
	g, _, c := newGate(t, auth.Config{})
	session, err := login(g, password, "")
	require.NoError(t, err)

	c.Advance(20 * time.Minute)
	_, err = g.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	c.Advance(11 * time.Minute)
	_, err = g.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestSlidingSessionExtends(t *testing.T) {
	ctx := context.Background()
	g, _, c := newGate(t, auth.Config{SessionMode: auth.SessionSliding})
	session, err := login(g, password, "")
	require.NoError(t, err)

	c.Advance(20 * time.Minute)
	_, err = g.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	c.Advance(20 * time.Minute)
	_, err = g.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	c.Advance(31 * time.Minute)
	_, err = g.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newGate(t, auth.Config{})
	session, _ := login(g, password, "")
	require.NoError(t, g.Logout(ctx, session.Token))
	_, err := g.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	_, err = g.Authenticate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newGate(t, auth.Config{})
	session, _ := login(g, password, "")

	assert.ErrorIs(t, g.ChangePassword(ctx, session.Token, "bad", "next"), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, g.ChangePassword(ctx, session.Token, password, ""), auth.ErrPasswordRequired)
	require.NoError(t, g.ChangePassword(ctx, session.Token, password, "NewSecret1"))

	_, err := login(g, password, "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = login(g, "NewSecret1", "")
	assert.NoError(t, err)
}

func TestTwoFactorFlow(t *testing.T) {
	ctx := context.Background()
	g, _, c := newGate(t, auth.Config{})
	session, err := login(g, password, "")
	require.NoError(t, err)

	require.ErrorIs(t, g.Verify2FA(ctx, session.Token, "123456"), auth.ErrNoPendingSecret)

	enrollment, err := g.Enable2FA(ctx, session.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.URL, "otpauth://totp/"))
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

	// pending secret does not guard logins yet
	_, err = login(g, password, "")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, c.Now())
	require.NoError(t, err)
	require.NoError(t, g.Verify2FA(ctx, session.Token, code))

	_, err = login(g, password, "")
	require.ErrorIs(t, err, auth.ErrSecondFactorRequired)
	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	_, err = login(g, password, wrong)
	require.ErrorIs(t, err, auth.ErrInvalidSecondFactor)

	lock, _ := g.Lockout(ctx)
	assert.Equal(t, 2, lock.FailedAttempts)

	// codes from two steps ago are still accepted
	old, err := totp.GenerateCode(enrollment.Secret, c.Now().Add(-60*time.Second))
	require.NoError(t, err)
	_, err = login(g, password, old)
	require.NoError(t, err)

	require.NoError(t, g.Disable2FA(ctx, session.Token))
	_, err = login(g, password, "")
	assert.NoError(t, err)
}

func TestAccessLogCapped(t *testing.T) {
	ctx := context.Background()
	g, _, c := newGate(t, auth.Config{AccessLogLimit: 5, MaxAttempts: 100})
	for i := 0; i < 8; i++ {
		_, _ = login(g, "wrong", "")
		c.Advance(time.Second)
	}
	session, err := login(g, password, "")
	require.NoError(t, err)

	entries, err := g.AccessLog(ctx, session.Token)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.True(t, entries[4].Success)
	assert.True(t, entries[0].Timestamp.Before(entries[4].Timestamp))

	_, err = g.AccessLog(ctx, "bogus")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
