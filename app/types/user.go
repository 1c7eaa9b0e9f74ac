package types

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// UpdateProfileRequest leaves a field untouched when it is absent. An empty
// phoneNumber or gender clears it.
type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Gender      *string `json:"gender,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ListUsersRequest carries the raw query parameters of the admin listing.
// Empty values fall back to the listing defaults.
type ListUsersRequest struct {
	Page   string
	Limit  string
	Search string
	SortBy string
	Order  string
	Status string
	Role   string
}

type DeleteUsersRequest struct {
	UserIDs []uint64 `json:"userIds"`
}

func NewListUsersRequestFromContext(ctx echo.Context) *ListUsersRequest {
	return &ListUsersRequest{
		Page:   strings.TrimSpace(ctx.QueryParam("page")),
		Limit:  strings.TrimSpace(ctx.QueryParam("limit")),
		Search: strings.TrimSpace(ctx.QueryParam("search")),
		SortBy: strings.TrimSpace(ctx.QueryParam("sortBy")),
		Order:  strings.ToLower(strings.TrimSpace(ctx.QueryParam("order"))),
		Status: strings.TrimSpace(ctx.QueryParam("status")),
		Role:   strings.TrimSpace(ctx.QueryParam("role")),
	}
}

func NewDeleteUsersRequestFromContext(ctx echo.Context) (*DeleteUsersRequest, error) {
	var body DeleteUsersRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewUpdateProfileRequestFromContext(ctx echo.Context) (*UpdateProfileRequest, error) {
	var body UpdateProfileRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewChangePasswordRequestFromContext(ctx echo.Context) (*ChangePasswordRequest, error) {
	var body ChangePasswordRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}

func NewUpdateStatusRequestFromContext(ctx echo.Context) (*UpdateStatusRequest, error) {
	var body UpdateStatusRequest
	if err := decodeStrict(ctx, &body); err != nil {
		return nil, err
	}

	return &body, nil
}
