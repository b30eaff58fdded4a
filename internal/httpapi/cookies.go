package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/authd/middleware"
)

type cookiePolicy struct {
	refreshPath string
	secure      bool
}

func newCookiePolicy(basePath string, secure bool) cookiePolicy {
	return cookiePolicy{refreshPath: basePath + "/auth/refresh", secure: secure}
}

func (p cookiePolicy) setAccess(c *gin.Context, token string, expiresAt time.Time) {
	p.set(c, middleware.AccessTokenCookie, token, "/", expiresAt)
}

// setRefresh scopes the refresh token to the refresh endpoint so it is not
// sent with ordinary API calls.
func (p cookiePolicy) setRefresh(c *gin.Context, token string, expiresAt time.Time) {
	p.set(c, middleware.RefreshTokenCookie, token, p.refreshPath, expiresAt)
}

func (p cookiePolicy) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", p.secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, p.refreshPath, "", p.secure, true)
}

func (p cookiePolicy) set(c *gin.Context, name, value, path string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, path, "", p.secure, true)
}
