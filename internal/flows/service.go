package flows

import (
	"context"

	"github.com/MrEthical07/authd/iphistory"
	"github.com/MrEthical07/authd/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.FindCredential != nil
}

func (s Service) Register(ctx context.Context, in RegisterInput) RegisterResult {
	return RunRegister(ctx, in, s.deps.Register)
}

func (s Service) Login(ctx context.Context, in LoginInput) LoginResult {
	return RunLogin(ctx, in, s.deps.Login)
}

func (s Service) Logout(ctx context.Context, tokenStr string) LogoutResult {
	return RunLogout(ctx, tokenStr, s.deps.Logout)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Authenticate(ctx context.Context, tokenStr string) AuthenticateResult {
	return RunAuthenticate(ctx, tokenStr, s.deps.Authenticate)
}

func (s Service) VerifyEmail(ctx context.Context, code string) VerifyEmailResult {
	return RunVerifyEmail(ctx, code, s.deps.VerifyEmail)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) PasswordResetRequestResult {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordResetRequest)
}

func (s Service) ConfirmPasswordReset(ctx context.Context, in PasswordResetConfirmInput) PasswordResetConfirmResult {
	return RunConfirmPasswordReset(ctx, in, s.deps.PasswordResetConfirm)
}

func (s Service) ListSessions(ctx context.Context, userID string) ([]*session.Session, error) {
	return RunListSessions(ctx, userID, s.deps.SessionAdmin)
}

func (s Service) RevokeSession(ctx context.Context, userID, sessionID string) (RevokeSessionFailureKind, error) {
	return RunRevokeSession(ctx, userID, sessionID, s.deps.SessionAdmin)
}

func (s Service) TrackIP(ctx context.Context, userID, ip string) ([]iphistory.Entry, error) {
	return RunTrackIP(ctx, userID, ip, s.deps.TrackIP)
}

func (s Service) CleanupIPHistory(ctx context.Context) IPCleanupResult {
	return RunIPCleanup(ctx, s.deps.IPCleanup)
}
