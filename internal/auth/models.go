package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials covers a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecondFactorRequired is returned when TOTP is enabled and no code was sent.
	ErrSecondFactorRequired = errors.New("second factor code required")
	// ErrInvalidSecondFactor is returned for a wrong TOTP code.
	ErrInvalidSecondFactor = errors.New("invalid second factor code")
	// ErrLocked is returned while the account is locked out.
	ErrLocked = errors.New("account locked")
	// ErrUnauthenticated is returned for a missing, unknown or expired session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrPasswordRequired is returned when a new password is empty.
	ErrPasswordRequired = errors.New("new password is required")
	// ErrNoPendingSecret is returned when verifying 2FA before enrolling.
	ErrNoPendingSecret = errors.New("two-factor enrollment not started")

	// ErrCredentialNotFound is returned by repositories before seeding.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrSessionNotFound is returned by repositories for unknown tokens.
	ErrSessionNotFound = errors.New("session not found")
)

// Credential is the single admin account.
type Credential struct {
	Username         string `json:"username"`
	PasswordHash     string `json:"passwordHash"`
	TwoFactorSecret  string `json:"twoFactorSecret,omitempty"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// Lockout tracks consecutive failures.
type Lockout struct {
	FailedAttempts int       `json:"failedAttempts"`
	LockedUntil    time.Time `json:"lockedUntil,omitempty"`
}

// Locked reports whether the lockout is in force at now.
func (l Lockout) Locked(now time.Time) bool {
	return !l.LockedUntil.IsZero() && now.Before(l.LockedUntil)
}

// AccessLogEntry records one login attempt.
type AccessLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// Session is an authenticated admin session.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Enrollment is what a user scans to register the TOTP secret.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
	// QRCode is a PNG data URL; empty when the image could not be rendered.
	QRCode string `json:"qrCode,omitempty"`
}

// SessionMode selects how the inactivity timeout behaves.
type SessionMode string

const (
	// SessionFixed expires a session a fixed time after login.
	SessionFixed SessionMode = "fixed"
	// SessionSliding extends the expiry on every authenticated call.
	SessionSliding SessionMode = "sliding"
)
