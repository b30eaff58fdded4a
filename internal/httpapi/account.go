package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/middleware"
)

func (h *handlers) principal(c *gin.Context) (authd.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		h.fail(c, authd.ErrAuthenticationRequired)
	}
	return p, ok
}

func (h *handlers) currentUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	user, err := h.engine.GetUser(c.Request.Context(), p.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{Data: user})
}

func (h *handlers) listSessions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	sessions, err := h.engine.ListSessions(c.Request.Context(), p.UserID, p.SessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *handlers) revokeSession(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.engine.RevokeSession(c.Request.Context(), p.UserID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Session revoked."})
}
