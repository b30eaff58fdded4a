package authd

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/authd/internal/flows"
	"github.com/MrEthical07/authd/internal/stores"
	"github.com/MrEthical07/authd/iphistory"
	"github.com/MrEthical07/authd/notify"
	"github.com/google/uuid"
)

func (e *Engine) buildFlows() internalflows.Service {
	return internalflows.New(internalflows.Deps{
		Register:             e.registerFlowDeps(),
		Login:                e.loginFlowDeps(),
		Logout:               e.logoutFlowDeps(),
		Refresh:              e.refreshFlowDeps(),
		Authenticate:         e.authenticateFlowDeps(),
		VerifyEmail:          e.verifyEmailFlowDeps(),
		PasswordResetRequest: e.passwordResetRequestFlowDeps(),
		PasswordResetConfirm: e.passwordResetConfirmFlowDeps(),
		SessionAdmin:         internalflows.SessionAdminDeps{SessionStore: e.sessions},
		TrackIP:              e.trackIPFlowDeps(),
		IPCleanup:            e.ipCleanupFlowDeps(),
	})
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		EmailExists: func(ctx context.Context, email string) (bool, error) {
			_, err := e.users.FindByEmail(ctx, email)
			switch {
			case err == nil:
				return true, nil
			case isUserNotFound(err):
				return false, nil
			default:
				return false, err
			}
		},
		HashPassword: e.hasher.Hash,
		CreateAccount: func(ctx context.Context, in internalflows.RegisterInput, hash string, history []iphistory.Entry, now time.Time) (string, any, error) {
			user := newUserRecord(uuid.NewString(), in.Name, in.Email, hash, history, now)
			if err := e.users.Create(ctx, user); err != nil {
				return "", nil, err
			}
			return user.ID, user, nil
		},
		AccountExists: ErrUserExists,
		IssueVerification: func(ctx context.Context, userID string) (stores.VerificationRecord, error) {
			return e.ledger.Issue(ctx, userID, stores.EmailVerification, e.config.Verification.EmailTTL)
		},
		SendVerification: func(ctx context.Context, in internalflows.RegisterInput, record stores.VerificationRecord) (string, error) {
			msg, err := notify.VerificationEmail(e.config.AppName, in.Email, e.verifyEmailURL(record.Code), e.config.Verification.EmailTTL)
			if err != nil {
				return "", err
			}
			delivery, err := e.notifier.Send(ctx, msg)
			return delivery.ID, err
		},
		Warn:           e.logger.Warn,
		Now:            e.now,
		IPHistoryLimit: e.config.IPHistory.RetentionLimit,
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		FindCredential:  e.findCredentialByEmail,
		UserNotFound:    ErrUserNotFound,
		ComparePassword: e.hasher.Compare,
		DummyHash:       e.dummyHash,
		RequireVerified: e.config.Policy.RequireVerifiedEmail,
		RecordLogin:     e.users.RecordLogin,
		SessionStore:    e.sessions,
		SessionLifetime: e.config.JWT.RefreshTTL,
		SignAccess:      e.tokens.SignAccess,
		SignRefresh:     e.tokens.SignRefresh,
		IPHistoryLimit:  e.config.IPHistory.RetentionLimit,
		Now:             e.now,
	}
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		VerifyAccessAllowExpired: e.tokens.VerifyAccessAllowExpired,
		SessionStore:             e.sessions,
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		VerifyRefresh:    e.tokens.VerifyRefresh,
		SignAccess:       e.tokens.SignAccess,
		SignRefresh:      e.tokens.SignRefresh,
		SessionStore:     e.sessions,
		RenewalThreshold: e.config.Session.RenewalThreshold,
		SessionLifetime:  e.config.JWT.RefreshTTL,
		Now:              e.now,
	}
}

func (e *Engine) authenticateFlowDeps() internalflows.AuthenticateDeps {
	return internalflows.AuthenticateDeps{
		VerifyAccess: e.tokens.VerifyAccess,
		SessionStore: e.sessions,
	}
}

func (e *Engine) verifyEmailFlowDeps() internalflows.VerifyEmailDeps {
	return internalflows.VerifyEmailDeps{
		Ledger:       e.ledger,
		MarkVerified: e.users.MarkVerified,
		UserNotFound: ErrUserNotFound,
	}
}

func (e *Engine) passwordResetRequestFlowDeps() internalflows.PasswordResetRequestDeps {
	return internalflows.PasswordResetRequestDeps{
		FindCredential: e.findCredentialByEmail,
		UserNotFound:   ErrUserNotFound,
		Ledger:         e.ledger,
		CodeTTL:        e.config.Verification.PasswordResetTTL,
		Window:         e.config.Policy.PasswordResetWindow,
		MaxPerWindow:   e.config.Policy.PasswordResetMaxPerWindow,
		SendReset: func(ctx context.Context, cred *internalflows.Credential, record stores.VerificationRecord) (string, error) {
			msg, err := notify.PasswordResetEmail(
				e.config.AppName,
				cred.Email,
				e.passwordResetURL(record.Code, record.ExpiresAt),
				e.config.Verification.PasswordResetTTL,
			)
			if err != nil {
				return "", err
			}
			delivery, err := e.notifier.Send(ctx, msg)
			return delivery.ID, err
		},
	}
}

func (e *Engine) passwordResetConfirmFlowDeps() internalflows.PasswordResetConfirmDeps {
	return internalflows.PasswordResetConfirmDeps{
		Ledger:             e.ledger,
		FindCredentialByID: e.findCredentialByID,
		UserNotFound:       ErrUserNotFound,
		RequireOldPassword: e.config.Policy.RequireOldPasswordOnReset,
		ComparePassword:    e.hasher.Compare,
		HashPassword:       e.hasher.Hash,
		UpdatePassword:     e.users.UpdatePassword,
		SessionStore:       e.sessions,
	}
}

func (e *Engine) trackIPFlowDeps() internalflows.TrackIPDeps {
	return internalflows.TrackIPDeps{
		LoadHistory: func(ctx context.Context, userID string) ([]iphistory.Entry, error) {
			user, err := e.users.FindByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			return user.IPHistory, nil
		},
		UpdateIPHistory: e.users.UpdateIPHistory,
		IPHistoryLimit:  e.config.IPHistory.RetentionLimit,
		Now:             e.now,
	}
}

func (e *Engine) ipCleanupFlowDeps() internalflows.IPCleanupDeps {
	return internalflows.IPCleanupDeps{
		ScanIPHistories: e.users.ScanIPHistories,
		UpdateIPHistory: e.users.UpdateIPHistory,
		IPHistoryLimit:  e.config.IPHistory.RetentionLimit,
		BatchSize:       e.config.IPHistory.CleanupBatchSize,
		Warn:            e.logger.Warn,
	}
}

func (e *Engine) findCredentialByEmail(ctx context.Context, email string) (*internalflows.Credential, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return credentialFromUser(user), nil
}

func (e *Engine) findCredentialByID(ctx context.Context, userID string) (*internalflows.Credential, error) {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return credentialFromUser(user), nil
}

func credentialFromUser(u *User) *internalflows.Credential {
	return &internalflows.Credential{
		UserID:        u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		PasswordLogin: u.Provider == ProviderEmail,
		Verified:      u.Verified,
		IPHistory:     u.IPHistory,
		Account:       u,
	}
}

func (e *Engine) frontendURL() string {
	return strings.TrimRight(e.config.FrontendURL, "/")
}

func (e *Engine) verifyEmailURL(code string) string {
	return e.frontendURL() + "/email/verify/" + url.PathEscape(code)
}

func (e *Engine) passwordResetURL(code string, expiresAt time.Time) string {
	return fmt.Sprintf("%s/password/reset?code=%s&exp=%d", e.frontendURL(), url.QueryEscape(code), expiresAt.UnixMilli())
}
