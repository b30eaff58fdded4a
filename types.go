package authd

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authd/iphistory"
	"github.com/MrEthical07/authd/notify"
)

// Provider names the identity provider an account signs in with. Only
// ProviderEmail accounts can log in with a password.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// IPEntry is one address in a user's recency-ordered IP history.
type IPEntry = iphistory.Entry

// IPHistoryRecord pairs a user id with its stored IP history. It is the unit
// returned by UserStore.ScanIPHistories.
type IPHistoryRecord = iphistory.UserHistory

// Preferences holds per-user settings. TwoFactorSecret is never serialized.
type Preferences struct {
	Enable2FA         bool   `json:"enable2FA"`
	EmailNotification bool   `json:"emailNotification"`
	TwoFactorSecret   string `json:"-"`
}

// User is the stored account record. Construct new records with
// newUserRecord so the password is hashed before the value exists.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Verified     bool        `json:"verified"`
	Provider     Provider    `json:"provider"`
	LastLogin    time.Time   `json:"-"`
	LastIP       string      `json:"-"`
	IPHistory    []IPEntry   `json:"-"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PublicPreferences is the client-visible projection of Preferences.
type PublicPreferences struct {
	Enable2FA         bool `json:"enable2FA"`
	EmailNotification bool `json:"emailNotification"`
}

// PublicUser is the only user shape returned to clients. It carries no
// password hash, IP data or two-factor secret.
type PublicUser struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Verified    bool              `json:"verified"`
	Provider    Provider          `json:"provider"`
	Preferences PublicPreferences `json:"preferences"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Public projects u into its client-visible form.
func (u *User) Public() PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Verified: u.Verified,
		Provider: u.Provider,
		Preferences: PublicPreferences{
			Enable2FA:         u.Preferences.Enable2FA,
			EmailNotification: u.Preferences.EmailNotification,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// newUserRecord builds an unverified email account. passwordHash must
// already be a hash; callers never hold a User carrying plaintext.
func newUserRecord(id, name, email, passwordHash string, history []IPEntry, now time.Time) *User {
	return &User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Provider:     ProviderEmail,
		LastIP:       iphistory.Latest(history),
		IPHistory:    history,
		Preferences:  Preferences{EmailNotification: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lowercases an address. Emails are unique
// case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore persists user records. Implementations must be safe for
// concurrent use and must return ErrUserNotFound / ErrUserExists for the
// documented cases so the engine can classify failures.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// Create inserts u. A duplicate email yields ErrUserExists.
	Create(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id, lastIP string, history []IPEntry, at time.Time) error
	UpdateIPHistory(ctx context.Context, id string, history []IPEntry) error
	// ScanIPHistories calls fn with successive batches of at most batchSize
	// users until every user was visited or fn returns an error.
	ScanIPHistories(ctx context.Context, batchSize int, fn func([]IPHistoryRecord) error) error
}

// Message is an outbound email.
type Message = notify.Message

// Delivery identifies a message accepted by the provider.
type Delivery = notify.Delivery

// Notifier sends transactional email. A successful send must return a
// non-empty Delivery.ID.
type Notifier interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}

type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	IP              string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

type VerifyEmailRequest struct {
	Code string
}

type PasswordResetRequest struct {
	Email string
}

type ResetPasswordRequest struct {
	Password         string
	ConfirmPassword  string
	VerificationCode string
	// OldPassword is checked only when Policy.RequireOldPasswordOnReset is set.
	OldPassword string
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	User             PublicUser
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult is returned by Engine.Refresh. RefreshToken is empty unless
// the session was rolled.
type RefreshResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Rolled           bool
	SessionExpiresAt time.Time
}

// Principal is the authenticated identity behind an access token.
type Principal struct {
	UserID    string
	SessionID string
}

// SessionView is the client-visible form of a session.
type SessionView struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"isCurrent,omitempty"`
}

// CleanupReport summarizes one IP history housekeeping pass.
type CleanupReport struct {
	UsersScanned   int
	UsersUpdated   int
	EntriesRemoved int
	Duration       time.Duration
}
