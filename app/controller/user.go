package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vibast-solutions/ms-go-blog-auth/app/middleware"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	users service.UserService
}

func NewUserController(users service.UserService) *UserController {
	return &UserController{users: users}
}

func (c *UserController) Me(ctx echo.Context) error {
	principal, ok := middleware.PrincipalFrom(ctx)
	if !ok {
		return respondError(ctx, service.ErrUnauthorized, "Get profile", nil)
	}

	user, err := c.users.GetProfile(ctx.Request().Context(), principal.UserID)
	if err != nil {
		return respondError(ctx, err, "Get profile", logrus.Fields{"user_id": principal.UserID})
	}

	return ctx.JSON(http.StatusOK, types.Success("get user successfully", types.NewUserProfile(user)))
}

func (c *UserController) UpdateMe(ctx echo.Context) error {
	principal, ok := middleware.PrincipalFrom(ctx)
	if !ok {
		return respondError(ctx, service.ErrUnauthorized, "Update profile", nil)
	}

	req, err := types.NewUpdateProfileRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "update profile")
	}

	user, err := c.users.UpdateProfile(ctx.Request().Context(), principal.UserID, req)
	if err != nil {
		return respondError(ctx, err, "Update profile", logrus.Fields{"user_id": principal.UserID})
	}

	logrus.WithField("user_id", user.ID).Info("Profile updated")
	return ctx.JSON(http.StatusOK, types.Success("user updated successfully", types.NewUserProfile(user)))
}

func (c *UserController) ChangePassword(ctx echo.Context) error {
	principal, ok := middleware.PrincipalFrom(ctx)
	if !ok {
		return respondError(ctx, service.ErrUnauthorized, "Change password", nil)
	}

	req, err := types.NewChangePasswordRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "change password")
	}

	if err = c.users.ChangePassword(ctx.Request().Context(), principal.UserID, req); err != nil {
		return respondError(ctx, err, "Change password", logrus.Fields{"user_id": principal.UserID})
	}

	logrus.WithField("user_id", principal.UserID).Info("Password changed")
	return ctx.JSON(http.StatusOK, types.Success("password changed successfully", nil))
}

func (c *UserController) Total(ctx echo.Context) error {
	total, err := c.users.Count(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, err, "Count users", nil)
	}

	return ctx.JSON(http.StatusOK, types.TotalUsersResponse{Total: total})
}

func (c *UserController) UpdateStatus(ctx echo.Context) error {
	userID, err := userIDParam(ctx)
	if err != nil {
		return respondError(ctx, err, "Update status", nil)
	}

	req, err := types.NewUpdateStatusRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "update status")
	}

	if err = c.users.SetStatus(ctx.Request().Context(), userID, req.Status); err != nil {
		return respondError(ctx, err, "Update status", logrus.Fields{"user_id": userID})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"status":  req.Status,
	}).Info("User status updated")
	return ctx.JSON(http.StatusOK, types.Success("user status updated successfully", nil))
}

func (c *UserController) Delete(ctx echo.Context) error {
	userID, err := userIDParam(ctx)
	if err != nil {
		return respondError(ctx, err, "Delete user", nil)
	}

	if err = c.users.Delete(ctx.Request().Context(), userID); err != nil {
		return respondError(ctx, err, "Delete user", logrus.Fields{"user_id": userID})
	}

	logrus.WithField("user_id", userID).Info("User deleted")
	return ctx.JSON(http.StatusOK, types.Success("deleted user successfully", nil))
}

func (c *UserController) List(ctx echo.Context) error {
	req := types.NewListUsersRequestFromContext(ctx)

	page, err := c.users.List(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err, "List users", logrus.Fields{"search": req.Search})
	}

	profiles := make([]types.UserProfile, 0, len(page.Users))
	for _, user := range page.Users {
		profiles = append(profiles, types.NewUserProfile(user))
	}

	return ctx.JSON(http.StatusOK, types.Success("get all users successfully", types.UserListResponse{
		Users: profiles,
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
	}))
}

func (c *UserController) DeleteMany(ctx echo.Context) error {
	req, err := types.NewDeleteUsersRequestFromContext(ctx)
	if err != nil {
		return invalidBody(ctx, err, "delete users")
	}

	deleted, err := c.users.DeleteMany(ctx.Request().Context(), req.UserIDs)
	if err != nil {
		return respondError(ctx, err, "Delete users", logrus.Fields{
			"requested": len(req.UserIDs),
			"deleted":   deleted,
		})
	}

	logrus.WithFields(logrus.Fields{
		"requested": len(req.UserIDs),
		"deleted":   deleted,
	}).Info("Users deleted")
	return ctx.JSON(http.StatusOK, types.Success(
		fmt.Sprintf("deleted %d users successfully", deleted),
		types.DeleteUsersResponse{Deleted: deleted},
	))
}

func userIDParam(ctx echo.Context) (uint64, error) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		return 0, &service.ValidationError{Field: "userId", Message: "invalid user id"}
	}
	return userID, nil
}
