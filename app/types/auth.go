package types

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/labstack/echo/v4"
)

var ErrMalformedBody = errors.New("request body is malformed or contains unknown fields")

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleSignInRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type LogoutRequest struct {
	UserID uint64 `json:"userId"`
}

// EmailRequest backs send-otp and resend-otp.
type EmailRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewGoogleSignInRequestFromContext(ctx echo.Context) (*GoogleSignInRequest, error) {
	var body GoogleSignInRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewLogoutRequestFromContext(ctx echo.Context) (*LogoutRequest, error) {
	var body LogoutRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewEmailRequestFromContext(ctx echo.Context) (*EmailRequest, error) {
	var body EmailRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewVerifyOTPRequestFromContext(ctx echo.Context) (*VerifyOTPRequest, error) {
	var body VerifyOTPRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

// decodeStrict rejects unknown fields and trailing data. An empty body
// leaves dst at its zero value so field validation reports what is missing.
func decodeStrict(ctx echo.Context, dst interface{}) error {
	decoder := json.NewDecoder(ctx.Request().Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ErrMalformedBody
	}
	if decoder.More() {
		return ErrMalformedBody
	}
	return nil
}
