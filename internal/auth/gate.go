package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"time"

	"academy-quiz-service/internal/logging"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Repository persists the gate's single global auth record.
type Repository interface {
	LoadCredential(ctx context.Context) (Credential, error)
	SaveCredential(ctx context.Context, cred Credential) error
	// LoadLockout returns the zero Lockout when none is stored.
	LoadLockout(ctx context.Context) (Lockout, error)
	SaveLockout(ctx context.Context, lock Lockout) error
	// AppendAccessLog adds entry and keeps only the newest limit entries.
	AppendAccessLog(ctx context.Context, entry AccessLogEntry, limit int) error
	// AccessLog returns entries oldest first.
	AccessLog(ctx context.Context) ([]AccessLogEntry, error)
	SaveSession(ctx context.Context, session Session) error
	LoadSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Config tunes the gate; zero values take the defaults below.
type Config struct {
	Username        string
	Password        string
	MaxAttempts     int
	LockoutDuration time.Duration
	SessionTimeout  time.Duration
	SessionMode     SessionMode
	TOTPSkew        uint
	Issuer          string
	AccessLogLimit  int
	BcryptCost      int
}

func (c Config) withDefaults() Config {
	if c.Username == "" {
		c.Username = "admin"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Minute
	}
	if c.SessionMode != SessionSliding {
		c.SessionMode = SessionFixed
	}
	if c.TOTPSkew == 0 {
		c.TOTPSkew = 2
	}
	if c.Issuer == "" {
		c.Issuer = "Academy Quiz"
	}
	if c.AccessLogLimit <= 0 {
		c.AccessLogLimit = 100
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	return c
}

// LoginRequest carries one login attempt.
type LoginRequest struct {
	Username  string
	Password  string
	Code      string
	IPAddress string
}

// Gate checks admin credentials with lockout, optional TOTP and session expiry.
type Gate struct {
	repo Repository
	cfg  Config
	now  func() time.Time
	log  logrus.FieldLogger

	mu sync.Mutex
}

func NewGate(repo Repository, cfg Config, log logrus.FieldLogger) *Gate {
	return NewGateWithClock(repo, cfg, log, time.Now)
}

// NewGateWithClock is test-only for deterministic timestamps.
func NewGateWithClock(repo Repository, cfg Config, log logrus.FieldLogger, now func() time.Time) *Gate {
	return &Gate{
		repo: repo,
		cfg:  cfg.withDefaults(),
		now:  now,
		log:  logging.OrDiscard(log).WithField("component", "auth"),
	}
}

// Init seeds the default credential when none is stored.
func (g *Gate) Init(ctx context.Context) error {
	_, err := g.repo.LoadCredential(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCredentialNotFound) {
		return err
	}
	if g.cfg.Password == "" {
		return fmt.Errorf("seed admin credential: %w", ErrPasswordRequired)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(g.cfg.Password), g.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	if err := g.repo.SaveCredential(ctx, Credential{Username: g.cfg.Username, PasswordHash: string(hash)}); err != nil {
		return err
	}
	g.log.WithField("user", g.cfg.Username).Info("default admin credential created")
	return nil
}

// Lockout reports the current lockout state, clearing it when expired.
func (g *Gate) Lockout(ctx context.Context) (Lockout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLockoutLocked(ctx)
}

// Login verifies an attempt and opens a session on success.
func (g *Gate) Login(ctx context.Context, req LoginRequest) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, err := g.currentLockoutLocked(ctx)
	if err != nil {
		return Session{}, err
	}
	if lock.Locked(g.now()) {
		return Session{}, ErrLocked
	}

	cred, err := g.repo.LoadCredential(ctx)
	if err != nil {
		return Session{}, err
	}
	if cred.Username != req.Username {
		return Session{}, g.failLocked(ctx, lock, req, ErrInvalidCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) != nil {
		return Session{}, g.failLocked(ctx, lock, req, ErrInvalidCredentials)
	}
	if cred.TwoFactorEnabled && cred.TwoFactorSecret != "" {
		code := strings.TrimSpace(req.Code)
		if code == "" {
			return Session{}, g.failLocked(ctx, lock, req, ErrSecondFactorRequired)
		}
		if !g.validCode(code, cred.TwoFactorSecret) {
			return Session{}, g.failLocked(ctx, lock, req, ErrInvalidSecondFactor)
		}
	}

	if err := g.repo.SaveLockout(ctx, Lockout{}); err != nil {
		return Session{}, err
	}
	now := g.now()
	session := Session{
		Token:     uuid.New().String(),
		Username:  cred.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(g.cfg.SessionTimeout),
	}
	if err := g.repo.SaveSession(ctx, session); err != nil {
		return Session{}, err
	}
	g.logAccess(ctx, req, true)
	g.log.WithField("user", cred.Username).Info("admin login")
	return session, nil
}

// Authenticate resolves a session token. In sliding mode the expiry moves
// forward on every call.
func (g *Gate) Authenticate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	session, err := g.repo.LoadSession(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, ErrUnauthenticated
	}
	if err != nil {
		return Session{}, err
	}
	now := g.now()
	if !now.Before(session.ExpiresAt) {
		_ = g.repo.DeleteSession(ctx, token)
		return Session{}, ErrUnauthenticated
	}
	if g.cfg.SessionMode == SessionSliding {
		session.ExpiresAt = now.Add(g.cfg.SessionTimeout)
		if err := g.repo.SaveSession(ctx, session); err != nil {
			return Session{}, err
		}
	}
	return session, nil
}

func (g *Gate) Logout(ctx context.Context, token string) error {
	return g.repo.DeleteSession(ctx, token)
}

// ChangePassword replaces the password after checking the old one.
func (g *Gate) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return err
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cred, err := g.repo.LoadCredential(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), g.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred.PasswordHash = string(hash)
	if err := g.repo.SaveCredential(ctx, cred); err != nil {
		return err
	}
	g.log.WithField("user", cred.Username).Info("admin password changed")
	return nil
}

// Enable2FA stores a new pending TOTP secret. It only guards logins once
// Verify2FA accepted a code for it.
func (g *Gate) Enable2FA(ctx context.Context, token string) (Enrollment, error) {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return Enrollment{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cred, err := g.repo.LoadCredential(ctx)
	if err != nil {
		return Enrollment{}, err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: g.cfg.Issuer, AccountName: cred.Username})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	cred.TwoFactorSecret = key.Secret()
	cred.TwoFactorEnabled = false
	if err := g.repo.SaveCredential(ctx, cred); err != nil {
		return Enrollment{}, err
	}

	enrollment := Enrollment{Secret: key.Secret(), URL: key.URL()}
	if qr, err := qrDataURL(key); err != nil {
		g.log.WithError(err).Warn("totp qr image unavailable")
	} else {
		enrollment.QRCode = qr
	}
	return enrollment, nil
}

// Verify2FA checks code against the stored secret and enables 2FA on success.
func (g *Gate) Verify2FA(ctx context.Context, token, code string) error {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cred, err := g.repo.LoadCredential(ctx)
	if err != nil {
		return err
	}
	if cred.TwoFactorSecret == "" {
		return ErrNoPendingSecret
	}
	if !g.validCode(strings.TrimSpace(code), cred.TwoFactorSecret) {
		return ErrInvalidSecondFactor
	}
	if cred.TwoFactorEnabled {
		return nil
	}
	cred.TwoFactorEnabled = true
	if err := g.repo.SaveCredential(ctx, cred); err != nil {
		return err
	}
	g.log.WithField("user", cred.Username).Info("two-factor enabled")
	return nil
}

func (g *Gate) Disable2FA(ctx context.Context, token string) error {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cred, err := g.repo.LoadCredential(ctx)
	if err != nil {
		return err
	}
	cred.TwoFactorSecret = ""
	cred.TwoFactorEnabled = false
	if err := g.repo.SaveCredential(ctx, cred); err != nil {
		return err
	}
	g.log.WithField("user", cred.Username).Info("two-factor disabled")
	return nil
}

// AccessLog returns the recorded login attempts, oldest first.
func (g *Gate) AccessLog(ctx context.Context, token string) ([]AccessLogEntry, error) {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return nil, err
	}
	return g.repo.AccessLog(ctx)
}

func (g *Gate) currentLockoutLocked(ctx context.Context) (Lockout, error) {
	lock, err := g.repo.LoadLockout(ctx)
	if err != nil {
		return Lockout{}, err
	}
	if !lock.LockedUntil.IsZero() && !lock.Locked(g.now()) {
		lock = Lockout{}
		if err := g.repo.SaveLockout(ctx, lock); err != nil {
			return Lockout{}, err
		}
		g.log.Info("admin lockout expired")
	}
	return lock, nil
}

// failLocked counts a failed attempt and returns cause.
func (g *Gate) failLocked(ctx context.Context, lock Lockout, req LoginRequest, cause error) error {
	lock.FailedAttempts++
	if lock.FailedAttempts >= g.cfg.MaxAttempts {
		lock.LockedUntil = g.now().Add(g.cfg.LockoutDuration)
	}
	if err := g.repo.SaveLockout(ctx, lock); err != nil {
		return err
	}
	g.logAccess(ctx, req, false)

	entry := g.log.WithFields(logrus.Fields{"user": req.Username, "attempts": lock.FailedAttempts})
	if !lock.LockedUntil.IsZero() {
		entry.WithField("lockedUntil", lock.LockedUntil).Warn("admin account locked")
	} else {
		entry.Warn("admin login failed")
	}
	return cause
}

func (g *Gate) logAccess(ctx context.Context, req LoginRequest, success bool) {
	entry := AccessLogEntry{
		Timestamp: g.now(),
		Username:  req.Username,
		Success:   success,
		IPAddress: req.IPAddress,
	}
	if err := g.repo.AppendAccessLog(ctx, entry, g.cfg.AccessLogLimit); err != nil {
		g.log.WithError(err).Warn("access log write failed")
	}
}

func (g *Gate) validCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, g.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      g.cfg.TOTPSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
