package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/authd"
)

const principalKey = "authd.principal"

// ErrIPTrackingFailed rejects a request whose user vanished between token
// issue and IP tracking.
var ErrIPTrackingFailed = &authd.Error{
	Kind:    authd.KindUnauthorized,
	Code:    authd.CodeInvalidAccessToken,
	Message: "Failed to update user IP.",
}

// Authenticator is the part of *authd.Engine the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (authd.Principal, error)
	TrackIP(ctx context.Context, userID, ip string) error
}

// ErrorHandler writes the response for a rejected request. It must abort c.
type ErrorHandler func(c *gin.Context, err error)

type Options struct {
	// TrackIP records c.ClientIP() in the user's history on each request.
	TrackIP bool
	// OnError defaults to a 401/500 JSON body {message, errorCode}.
	OnError ErrorHandler
}

// Authenticate rejects requests without a valid access token.
func Authenticate(auth Authenticator, opts Options) gin.HandlerFunc {
	onError := opts.OnError
	if onError == nil {
		onError = defaultError
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		p, err := auth.Authenticate(ctx, AccessToken(c))
		if err != nil {
			onError(c, err)
			return
		}

		if opts.TrackIP {
			if err := auth.TrackIP(ctx, p.UserID, c.ClientIP()); err != nil {
				if authd.KindOf(err) == authd.KindNotFound {
					err = ErrIPTrackingFailed
				}
				onError(c, err)
				return
			}
		}

		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(authd.WithPrincipal(ctx, p))
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *gin.Context) (authd.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return authd.Principal{}, false
	}
	p, ok := v.(authd.Principal)
	return p, ok
}

func defaultError(c *gin.Context, err error) {
	var e *authd.Error
	if !errors.As(err, &e) || e.Kind != authd.KindUnauthorized {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": authd.InternalErrorMessage})
		return
	}
	body := gin.H{"message": e.Message}
	if e.Code != "" {
		body["errorCode"] = e.Code
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}
