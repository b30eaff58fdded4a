package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/middleware"
)

type registerBody struct {
	Name            string `json:"name" binding:"required,min=1,max=100"`
	Email           string `json:"email" binding:"required,email,max=100"`
	Password        string `json:"password" binding:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type loginBody struct {
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type verifyBody struct {
	Code string `json:"code" binding:"required,min=1,max=24"`
}

type forgotBody struct {
	Email string `json:"email" binding:"required,email,max=100"`
}

type resetBody struct {
	Password        string `json:"password" binding:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
	Code            string `json:"code" binding:"required,min=1,max=24"`
	OldPassword     string `json:"oldPassword" binding:"omitempty,max=100"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Message string           `json:"message,omitempty"`
	Data    authd.PublicUser `json:"data"`
}

func (h *handlers) register(c *gin.Context) {
	var body registerBody
	if !h.bind(c, &body) {
		return
	}
	user, err := h.engine.Register(c.Request.Context(), authd.RegisterRequest{
		Name:            body.Name,
		Email:           body.Email,
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPassword,
		IP:              c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, userResponse{Message: "User created successfully.", Data: user})
}

func (h *handlers) login(c *gin.Context) {
	var body loginBody
	if !h.bind(c, &body) {
		return
	}
	res, err := h.engine.Login(c.Request.Context(), authd.LoginRequest{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cookies.setAccess(c, res.AccessToken, res.AccessExpiresAt)
	h.cookies.setRefresh(c, res.RefreshToken, res.RefreshExpiresAt)
	c.JSON(http.StatusOK, userResponse{Message: "Welcome back! You're now logged in.", Data: res.User})
}

func (h *handlers) logout(c *gin.Context) {
	err := h.engine.Logout(c.Request.Context(), middleware.AccessToken(c))
	h.cookies.clear(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Logout successful."})
}

func (h *handlers) refresh(c *gin.Context) {
	res, err := h.engine.Refresh(c.Request.Context(), middleware.RefreshToken(c))
	if err != nil {
		h.cookies.clear(c)
		h.fail(c, err)
		return
	}
	h.cookies.setAccess(c, res.AccessToken, res.AccessExpiresAt)
	if res.Rolled {
		h.cookies.setRefresh(c, res.RefreshToken, res.RefreshExpiresAt)
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Your session has been successfully renewed."})
}

// verifyEmail accepts the code either as a path segment or in the body.
func (h *handlers) verifyEmail(c *gin.Context) {
	body := verifyBody{Code: c.Param("code")}
	if body.Code == "" && !h.bind(c, &body) {
		return
	}
	if len(body.Code) > 24 {
		h.fail(c, authd.ErrInvalidVerificationCode)
		return
	}
	user, err := h.engine.VerifyEmail(c.Request.Context(), body.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{Message: "Email was successfully verified.", Data: user})
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var body forgotBody
	if !h.bind(c, &body) {
		return
	}
	if err := h.engine.SendPasswordReset(c.Request.Context(), authd.PasswordResetRequest{Email: body.Email}); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Password reset email sent."})
}

func (h *handlers) resetPassword(c *gin.Context) {
	var body resetBody
	if !h.bind(c, &body) {
		return
	}
	_, err := h.engine.ResetPassword(c.Request.Context(), authd.ResetPasswordRequest{
		Password:         body.Password,
		ConfirmPassword:  body.ConfirmPassword,
		VerificationCode: body.Code,
		OldPassword:      body.OldPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cookies.clear(c)
	c.JSON(http.StatusOK, messageResponse{Message: "Password reset successful."})
}
