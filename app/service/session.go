package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/dto"
	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/repository"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultPasswordMinLength = 6

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	UpdateFields(ctx context.Context, id uint64, update entity.UserUpdate) error
}

type refreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string, userID uint64) (int64, error)
	DeleteByUserID(ctx context.Context, userID uint64) error
}

// RecoveryMailer delivers a password recovery code to an address.
type RecoveryMailer interface {
	SendRecoveryCode(ctx context.Context, to, code string) error
}

type SessionService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*entity.User, error)
	Login(ctx context.Context, req *types.LoginRequest) (*dto.SessionResult, error)
	SocialSignIn(ctx context.Context, req *types.GoogleSignInRequest) (*dto.SessionResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string, userID uint64) error
	RequestPasswordRecovery(ctx context.Context, email string) (*dto.RecoveryResult, error)
	ResendPasswordRecovery(ctx context.Context, email string) (*dto.RecoveryResult, error)
	VerifyRecoveryCode(ctx context.Context, req *types.VerifyOTPRequest) error
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type SessionServiceOption func(*sessionService)

type sessionService struct {
	userRepo          userRepository
	refreshTokenRepo  refreshTokenRepository
	codes             *OneTimeCodeStore
	tokens            *TokenIssuer
	hasher            PasswordHasher
	mailer            RecoveryMailer
	passwordMinLength int
	now               func() time.Time
}

func NewSessionService(
	userRepo userRepository,
	refreshTokenRepo refreshTokenRepository,
	codes *OneTimeCodeStore,
	tokens *TokenIssuer,
	hasher PasswordHasher,
	mailer RecoveryMailer,
	opts ...SessionServiceOption,
) SessionService {
	svc := &sessionService{
		userRepo:          userRepo,
		refreshTokenRepo:  refreshTokenRepo,
		codes:             codes,
		tokens:            tokens,
		hasher:            hasher,
		mailer:            mailer,
		passwordMinLength: DefaultPasswordMinLength,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithPasswordMinLength(length int) SessionServiceOption {
	return func(s *sessionService) {
		if length > 0 {
			s.passwordMinLength = length
		}
	}
}

func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *sessionService) Register(ctx context.Context, req *types.RegisterRequest) (*entity.User, error) {
	if err := requireField("email", req.Email); err != nil {
		return nil, err
	}
	if err := requireField("password", req.Password); err != nil {
		return nil, err
	}
	if err := requireField("displayName", req.DisplayName); err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword("password", req.Password, s.passwordMinLength); err != nil {
		return nil, err
	}
	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	if err = validateDisplayName(req.DisplayName); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	user := s.newUser(email, req.DisplayName, hashedPassword, "")
	if err = s.createUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *sessionService) Login(ctx context.Context, req *types.LoginRequest) (*dto.SessionResult, error) {
	if err := requireField("email", req.Email); err != nil {
		return nil, err
	}
	if err := requireField("password", req.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword("password", req.Password, s.passwordMinLength); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrIncorrectPassword
	}

	return s.openSession(ctx, user)
}

// SocialSignIn trusts the caller to have verified the external identity.
func (s *sessionService) SocialSignIn(ctx context.Context, req *types.GoogleSignInRequest) (*dto.SessionResult, error) {
	if err := requireField("email", req.Email); err != nil {
		return nil, err
	}
	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.openSession(ctx, user)
	}

	displayName := normalizeSocialDisplayName(req.DisplayName)
	if displayName == "" {
		return nil, invalidField("displayName", "is required")
	}

	hashedPassword, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	user = s.newUser(email, displayName, hashedPassword, strings.TrimSpace(req.Avatar))
	if err = s.createUser(ctx, user); err != nil {
		if !errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		// A concurrent sign-in provisioned the same address first.
		if user, err = s.userRepo.FindByEmail(ctx, email); err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}

	return s.openSession(ctx, user)
}

// RefreshAccessToken treats an unknown, revoked or expired token the same
// way. The refresh token itself is not rotated.
func (s *sessionService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrUnauthorized
	}

	stored, err := s.refreshTokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", ErrTokenExpired
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil || claims.UserID != stored.UserID {
		return "", ErrTokenExpired
	}
	if !s.now().Before(stored.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrTokenExpired
	}
	if user.IsLocked() {
		return "", ErrAccountLocked
	}

	return s.tokens.IssueAccessToken(user.ID, user.DisplayName)
}

// Logout is a no-op when either half of the (token, user) pair is missing.
func (s *sessionService) Logout(ctx context.Context, refreshToken string, userID uint64) error {
	if refreshToken == "" || userID == 0 {
		return nil
	}

	rows, err := s.refreshTokenRepo.DeleteByToken(ctx, refreshToken, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		logrus.WithField("user_id", userID).Debug("Logout matched no stored session")
	}
	return nil
}

func (s *sessionService) RequestPasswordRecovery(ctx context.Context, email string) (*dto.RecoveryResult, error) {
	email, err := s.recoveryAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.issueRecoveryCode(ctx, email)
}

// ResendPasswordRecovery drops any pending code and issues a new one.
func (s *sessionService) ResendPasswordRecovery(ctx context.Context, email string) (*dto.RecoveryResult, error) {
	email, err := s.recoveryAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	if err = s.codes.Consume(ctx, email); err != nil {
		return nil, err
	}
	return s.issueRecoveryCode(ctx, email)
}

func (s *sessionService) VerifyRecoveryCode(ctx context.Context, req *types.VerifyOTPRequest) error {
	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := requireField("otp", req.OTP); err != nil {
		return err
	}

	return s.codes.Verify(ctx, email, strings.TrimSpace(req.OTP))
}

// ResetPassword re-checks the code value, so a reset never depends on an
// earlier verify call.
func (s *sessionService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error {
	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err = validatePassword("password", req.Password, s.passwordMinLength); err != nil {
		return err
	}
	if err = requireField("otp", req.OTP); err != nil {
		return err
	}
	if err = s.codes.Verify(ctx, email, strings.TrimSpace(req.OTP)); err != nil {
		return err
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	if err = s.userRepo.UpdateFields(ctx, user.ID, entity.UserUpdate{PasswordHash: &hashedPassword}); err != nil {
		return err
	}
	if err = s.codes.Consume(ctx, email); err != nil {
		return err
	}

	return s.refreshTokenRepo.DeleteByUserID(ctx, user.ID)
}

func (s *sessionService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.VerifyAccessToken(tokenString)
}

// openSession enforces the lock gate before any token is minted.
func (s *sessionService) openSession(ctx context.Context, user *entity.User) (*dto.SessionResult, error) {
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.DisplayName)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.DisplayName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err = s.refreshTokenRepo.Create(ctx, &entity.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &dto.SessionResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *sessionService) recoveryAddress(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return email, nil
}

func (s *sessionService) issueRecoveryCode(ctx context.Context, email string) (*dto.RecoveryResult, error) {
	_, err := s.codes.Issue(ctx, email, func(code string) error {
		if sendErr := s.mailer.SendRecoveryCode(ctx, email, code); sendErr != nil {
			return fmt.Errorf("%w: %v", ErrNetwork, sendErr)
		}
		return nil
	})
	if errors.Is(err, ErrCodeAlreadyPending) {
		return &dto.RecoveryResult{Sent: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.RecoveryResult{Sent: true}, nil
}

func (s *sessionService) newUser(email, displayName, passwordHash, avatar string) *entity.User {
	if avatar == "" {
		avatar = entity.DefaultAvatar
	}
	now := s.now()
	return &entity.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Avatar:       avatar,
		Role:         entity.RoleUser,
		Status:       entity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *sessionService) createUser(ctx context.Context, user *entity.User) error {
	err := s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		return ErrDuplicateEmail
	}
	return err
}
