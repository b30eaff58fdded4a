package jwt

import (
	"crypto/subtle"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
const MinSecretLength = 32

// DefaultAudience is stamped into every token when Config.Audience is empty.
const DefaultAudience = "user"

var (
	// ErrSecretTooShort is returned by NewManager when a secret is shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("jwt: secret must be at least 32 bytes")
	// ErrSecretsNotDistinct is returned by NewManager when both secrets are equal.
	ErrSecretsNotDistinct = errors.New("jwt: access and refresh secrets must differ")
	// ErrInvalidTTL is returned by NewManager for non-positive lifetimes.
	ErrInvalidTTL = errors.New("jwt: invalid TTL configuration")
	// ErrInvalidLeeway is returned by NewManager for a leeway outside [0, 2m].
	ErrInvalidLeeway = errors.New("jwt: invalid leeway configuration")
)

// VerifyStatus classifies the outcome of verifying a token.
type VerifyStatus int

const (
	// StatusInvalid means the token must not be trusted at all.
	StatusInvalid VerifyStatus = iota
	// StatusExpired means the token is authentic but its exp claim has passed.
	StatusExpired
	// StatusValid means the token is authentic and current.
	StatusValid
)

// String returns a lowercase name for logs and audit metadata.
func (s VerifyStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Config configures a Manager.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Audience      string
	Issuer        string
	Leeway        time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. It carries only the session id.
type RefreshClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens. A Manager is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager rejects secrets shorter than MinSecretLength, identical access and
// refresh secrets, non-positive TTLs, and a leeway above two minutes.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < MinSecretLength || len(cfg.RefreshSecret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, ErrSecretsNotDistinct
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, ErrInvalidLeeway
	}
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	cfg.AccessSecret = slices.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = slices.Clone(cfg.RefreshSecret)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// SignAccess mints an access token for the user and session and returns it
// with its expiry.
func (m *Manager) SignAccess(userID, sessionID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.config.AccessTTL)
	claims := AccessClaims{
		UID:              userID,
		SID:              sessionID,
		RegisteredClaims: m.registered(now, exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// SignRefresh mints a refresh token for the session and returns it with its
// expiry.
func (m *Manager) SignRefresh(sessionID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.config.RefreshTTL)
	claims := RefreshClaims{
		SID:              sessionID,
		RegisteredClaims: m.registered(now, exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// VerifyAccess checks an access token strictly.
func (m *Manager) VerifyAccess(token string) (*AccessClaims, VerifyStatus) {
	claims := &AccessClaims{}
	status := m.verify(token, claims, m.config.AccessSecret, false)
	if status == StatusInvalid || claims.UID == "" || claims.SID == "" {
		return nil, StatusInvalid
	}
	return claims, status
}

// VerifyAccessAllowExpired checks signature and audience of an access token and
// ignores its expiry. The returned status is StatusValid or StatusInvalid.
func (m *Manager) VerifyAccessAllowExpired(token string) (*AccessClaims, VerifyStatus) {
	claims := &AccessClaims{}
	status := m.verify(token, claims, m.config.AccessSecret, true)
	if status == StatusInvalid || claims.UID == "" || claims.SID == "" {
		return nil, StatusInvalid
	}
	return claims, StatusValid
}

// VerifyRefresh checks a refresh token strictly.
func (m *Manager) VerifyRefresh(token string) (*RefreshClaims, VerifyStatus) {
	claims := &RefreshClaims{}
	status := m.verify(token, claims, m.config.RefreshSecret, false)
	if status == StatusInvalid || claims.SID == "" {
		return nil, StatusInvalid
	}
	return claims, status
}

func (m *Manager) registered(now, exp time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{m.config.Audience},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if m.config.Issuer != "" {
		rc.Issuer = m.config.Issuer
	}
	return rc
}

// verify parses the token with signature checks only, then validates claims in
// a second step so an expired-but-authentic token can be told apart from a
// forged one.
func (m *Manager) verify(token string, claims jwt.Claims, secret []byte, allowExpired bool) VerifyStatus {
	if token == "" {
		return StatusInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return StatusInvalid
	}
	if !m.bound(claims) {
		return StatusInvalid
	}
	if allowExpired {
		return StatusValid
	}

	validator := jwt.NewValidator(
		jwt.WithAudience(m.config.Audience),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	err = validator.Validate(claims)
	switch {
	case err == nil:
		return StatusValid
	case errors.Is(err, jwt.ErrTokenExpired):
		return StatusExpired
	default:
		return StatusInvalid
	}
}

// bound reports whether the token was minted for this manager's audience and
// issuer. It does not look at time-based claims.
func (m *Manager) bound(claims jwt.Claims) bool {
	aud, err := claims.GetAudience()
	if err != nil || !slices.Contains(aud, m.config.Audience) {
		return false
	}
	if m.config.Issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != m.config.Issuer {
			return false
		}
	}
	exp, err := claims.GetExpirationTime()
	return err == nil && exp != nil
}
