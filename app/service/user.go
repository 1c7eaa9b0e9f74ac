package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/vibast-solutions/ms-go-blog-auth/app/dto"
	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/repository"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"
)

type userAdminRepository interface {
	userRepository
	SetStatus(ctx context.Context, id uint64, status string) (int64, error)
	SetRole(ctx context.Context, id uint64, role string) (int64, error)
	Delete(ctx context.Context, id uint64) (int64, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, q repository.UserListQuery) ([]*entity.User, int64, error)
}

const (
	DefaultUserPageSize = 9
	MaxUserPageSize     = 100
	MaxBulkDelete       = 100
)

type sessionRevoker interface {
	DeleteByUserID(ctx context.Context, userID uint64) error
}

type codeRemover interface {
	Consume(ctx context.Context, email string) error
}

// UserService covers the authenticated profile routes and the admin
// operations shared by the HTTP surface and the CLI.
type UserService interface {
	GetProfile(ctx context.Context, userID uint64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uint64, req *types.UpdateProfileRequest) (*entity.User, error)
	ChangePassword(ctx context.Context, userID uint64, req *types.ChangePasswordRequest) error
	SetStatus(ctx context.Context, userID uint64, status string) error
	Promote(ctx context.Context, userID uint64) error
	RevokeSessions(ctx context.Context, userID uint64) error
	Delete(ctx context.Context, userID uint64) error
	DeleteMany(ctx context.Context, userIDs []uint64) (int, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, req *types.ListUsersRequest) (*dto.UserPage, error)
}

type UserServiceOption func(*userService)

type userService struct {
	userRepo          userAdminRepository
	sessions          sessionRevoker
	codes             codeRemover
	hasher            PasswordHasher
	passwordMinLength int
}

func NewUserService(
	userRepo userAdminRepository,
	sessions sessionRevoker,
	codes codeRemover,
	hasher PasswordHasher,
	opts ...UserServiceOption,
) UserService {
	svc := &userService{
		userRepo:          userRepo,
		sessions:          sessions,
		codes:             codes,
		hasher:            hasher,
		passwordMinLength: DefaultPasswordMinLength,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithUserPasswordMinLength(length int) UserServiceOption {
	return func(s *userService) {
		if length > 0 {
			s.passwordMinLength = length
		}
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint64, req *types.UpdateProfileRequest) (*entity.User, error) {
	update := entity.UserUpdate{}

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		update.Email = &email
	}
	if req.DisplayName != nil {
		if err := validateDisplayName(*req.DisplayName); err != nil {
			return nil, err
		}
		update.DisplayName = req.DisplayName
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		if err := validatePhoneNumber(phone); err != nil {
			return nil, err
		}
		update.PhoneNumber = &phone
	}
	if req.Avatar != nil {
		avatar := strings.TrimSpace(*req.Avatar)
		if avatar == "" {
			avatar = entity.DefaultAvatar
		}
		update.Avatar = &avatar
	}
	if req.Gender != nil {
		if err := validateGender(*req.Gender); err != nil {
			return nil, err
		}
		update.Gender = req.Gender
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	if !update.IsEmpty() {
		err := s.userRepo.UpdateFields(ctx, userID, update)
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateEmail
		}
		if err != nil {
			return nil, err
		}
	}

	return s.GetProfile(ctx, userID)
}

func (s *userService) ChangePassword(ctx context.Context, userID uint64, req *types.ChangePasswordRequest) error {
	if err := requireField("oldPassword", req.OldPassword); err != nil {
		return err
	}
	if err := validatePassword("newPassword", req.NewPassword, s.passwordMinLength); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	hashedPassword, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err = s.userRepo.UpdateFields(ctx, userID, entity.UserUpdate{PasswordHash: &hashedPassword}); err != nil {
		return err
	}

	return s.sessions.DeleteByUserID(ctx, userID)
}

// SetStatus revokes every refresh token when the account gets locked.
func (s *userService) SetStatus(ctx context.Context, userID uint64, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	rows, err := s.userRepo.SetStatus(ctx, userID, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err = s.GetProfile(ctx, userID); err != nil {
			return err
		}
	}

	if status == entity.StatusLocked {
		return s.sessions.DeleteByUserID(ctx, userID)
	}
	return nil
}

func (s *userService) Promote(ctx context.Context, userID uint64) error {
	rows, err := s.userRepo.SetRole(ctx, userID, entity.RoleAdmin)
	if err != nil {
		return err
	}
	if rows == 0 {
		_, err = s.GetProfile(ctx, userID)
		return err
	}
	return nil
}

func (s *userService) RevokeSessions(ctx context.Context, userID uint64) error {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}
	return s.sessions.DeleteByUserID(ctx, userID)
}

// Delete also drops the user's sessions and any pending recovery code.
func (s *userService) Delete(ctx context.Context, userID uint64) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if err = s.sessions.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	if err = s.codes.Consume(ctx, user.Email); err != nil {
		return err
	}

	rows, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteMany deletes every listed account the way Delete does. Unknown
// and repeated ids are skipped; the number of deleted accounts is returned.
func (s *userService) DeleteMany(ctx context.Context, userIDs []uint64) (int, error) {
	if len(userIDs) == 0 {
		return 0, invalidField("userIds", "is required")
	}
	if len(userIDs) > MaxBulkDelete {
		return 0, invalidField("userIds", "must not list more than 100 users")
	}
	for _, id := range userIDs {
		if id == 0 {
			return 0, invalidField("userIds", "contains an invalid user id")
		}
	}

	seen := make(map[uint64]struct{}, len(userIDs))
	deleted := 0
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		err := s.Delete(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *userService) Count(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *userService) List(ctx context.Context, req *types.ListUsersRequest) (*dto.UserPage, error) {
	query := repository.UserListQuery{
		Search:     req.Search,
		Status:     req.Status,
		Role:       req.Role,
		SortBy:     req.SortBy,
		Descending: true,
		Page:       1,
		PageSize:   DefaultUserPageSize,
	}

	if req.Page != "" {
		page, err := strconv.Atoi(req.Page)
		if err != nil || page < 1 {
			return nil, invalidField("page", "must be a positive number")
		}
		query.Page = page
	}
	if req.Limit != "" {
		limit, err := strconv.Atoi(req.Limit)
		if err != nil || limit < 1 || limit > MaxUserPageSize {
			return nil, invalidField("limit", "must be between 1 and 100")
		}
		query.PageSize = limit
	}
	if query.SortBy == "" {
		query.SortBy = "createdAt"
	} else if !repository.IsSortableUserField(query.SortBy) {
		return nil, invalidField("sortBy", "must be one of createdAt, updatedAt, displayName, email")
	}
	switch req.Order {
	case "", "desc":
	case "asc":
		query.Descending = false
	default:
		return nil, invalidField("order", "must be asc or desc")
	}
	if query.Status != "" {
		if err := validateStatus(query.Status); err != nil {
			return nil, err
		}
	}
	if query.Role != "" {
		if err := validateRole(query.Role); err != nil {
			return nil, err
		}
	}

	users, total, err := s.userRepo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return &dto.UserPage{
		Users: users,
		Page:  query.Page,
		Limit: query.PageSize,
		Total: total,
	}, nil
}
