package controller

import (
	"net/http"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/dto"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"
	"github.com/vibast-solutions/ms-go-blog-auth/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type SessionController struct {
	sessions   service.SessionService
	cookie     config.CookieConfig
	refreshTTL time.Duration
}

func NewSessionController(sessions service.SessionService, cookie config.CookieConfig, refreshTTL time.Duration) *SessionController {
	return &SessionController{sessions: sessions, cookie: cookie, refreshTTL: refreshTTL}
}

func (c *SessionController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "register")
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	user, err := c.sessions.Register(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err, "Register", logrus.Fields{"email": req.Email})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, types.Success("registered new user successfully", types.NewUserProfile(user)))
}

func (c *SessionController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "login")
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	result, err := c.sessions.Login(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err, "Login", logrus.Fields{"email": req.Email})
	}

	logrus.WithField("user_id", result.User.ID).Info("Login successful")
	return c.writeSession(ctx, result, "signed in successfully")
}

func (c *SessionController) GoogleSignIn(ctx echo.Context) error {
	req, err := types.NewGoogleSignInRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "google sign-in")
	}

	logrus.WithField("email", req.Email).Info("Google sign-in request received")
	result, err := c.sessions.SocialSignIn(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err, "Google sign-in", logrus.Fields{"email": req.Email})
	}

	logrus.WithField("user_id", result.User.ID).Info("Google sign-in successful")
	return c.writeSession(ctx, result, "signed in successfully")
}

func (c *SessionController) RefreshToken(ctx echo.Context) error {
	var refreshToken string
	if cookie, err := ctx.Cookie(c.cookie.Name); err == nil {
		refreshToken = cookie.Value
	}

	accessToken, err := c.sessions.RefreshAccessToken(ctx.Request().Context(), refreshToken)
	if err != nil {
		return respondError(ctx, err, "Refresh token", nil)
	}

	logrus.Debug("Access token refreshed")
	return ctx.JSON(http.StatusOK, types.AccessTokenResponse{AccessToken: accessToken})
}

// Logout always clears the cookie, even when no stored session matched or
// the body could not be read. Without a userId no stored row is touched.
func (c *SessionController) Logout(ctx echo.Context) error {
	var refreshToken string
	if cookie, err := ctx.Cookie(c.cookie.Name); err == nil {
		refreshToken = cookie.Value
	}
	ctx.SetCookie(c.refreshCookie("", -1))

	req, err := types.NewLogoutRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Logout body ignored")
		req = &types.LogoutRequest{}
	}

	if err = c.sessions.Logout(ctx.Request().Context(), refreshToken, req.UserID); err != nil {
		return respondError(ctx, err, "Logout", logrus.Fields{"user_id": req.UserID})
	}

	logrus.WithField("user_id", req.UserID).Info("Logout successful")
	return ctx.JSON(http.StatusOK, struct{}{})
}

func (c *SessionController) SendOTP(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "send otp")
	}

	result, err := c.sessions.RequestPasswordRecovery(ctx.Request().Context(), req.Email)
	if err != nil {
		return respondError(ctx, err, "Send otp", logrus.Fields{"email": req.Email})
	}

	return c.writeRecovery(ctx, req.Email, result)
}

func (c *SessionController) ResendOTP(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "resend otp")
	}

	result, err := c.sessions.ResendPasswordRecovery(ctx.Request().Context(), req.Email)
	if err != nil {
		return respondError(ctx, err, "Resend otp", logrus.Fields{"email": req.Email})
	}

	return c.writeRecovery(ctx, req.Email, result)
}

func (c *SessionController) VerifyOTP(ctx echo.Context) error {
	req, err := types.NewVerifyOTPRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "verify otp")
	}

	if err = c.sessions.VerifyRecoveryCode(ctx.Request().Context(), req); err != nil {
		return respondError(ctx, err, "Verify otp", logrus.Fields{"email": req.Email})
	}

	return ctx.JSON(http.StatusOK, types.Success("recovery code is valid", nil))
}

func (c *SessionController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "reset password")
	}

	if err = c.sessions.ResetPassword(ctx.Request().Context(), req); err != nil {
		return respondError(ctx, err, "Reset password", logrus.Fields{"email": req.Email})
	}

	logrus.WithField("email", req.Email).Info("Password reset")
	return ctx.JSON(http.StatusOK, types.Success("password has been reset", nil))
}

func (c *SessionController) writeSession(ctx echo.Context, result *dto.SessionResult, message string) error {
	ctx.SetCookie(c.refreshCookie(result.RefreshToken, int(c.refreshTTL.Seconds())))

	return ctx.JSON(http.StatusOK, types.Success(message, types.SessionData{
		UserProfile: types.NewUserProfile(result.User),
		AccessToken: result.AccessToken,
	}))
}

func (c *SessionController) writeRecovery(ctx echo.Context, email string, result *dto.RecoveryResult) error {
	if !result.Sent {
		logrus.WithField("email", email).Info("Recovery code already pending")
		return ctx.JSON(http.StatusOK, types.Info("a recovery code has already been sent, please check your email"))
	}

	logrus.WithField("email", email).Info("Recovery code sent")
	return ctx.JSON(http.StatusOK, types.Success("a recovery code has been sent to your email", nil))
}

func (c *SessionController) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   c.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: c.cookie.SameSite,
	}
}
