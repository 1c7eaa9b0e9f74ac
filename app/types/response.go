package types

import (
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
)

// RequestStatus values are what the blog frontend switches on.
type RequestStatus int

const (
	StatusError   RequestStatus = 0
	StatusSuccess RequestStatus = 1
	StatusInfo    RequestStatus = 2
)

type Envelope struct {
	RequestStatus RequestStatus `json:"requestStatus"`
	Message       string        `json:"message"`
	FieldError    string        `json:"fieldError,omitempty"`
	Data          interface{}   `json:"data,omitempty"`
}

func Success(message string, data interface{}) Envelope {
	return Envelope{RequestStatus: StatusSuccess, Message: message, Data: data}
}

func Info(message string) Envelope {
	return Envelope{RequestStatus: StatusInfo, Message: message}
}

func Failure(message string) Envelope {
	return Envelope{RequestStatus: StatusError, Message: message}
}

func FieldFailure(field, message string) Envelope {
	return Envelope{RequestStatus: StatusError, Message: message, FieldError: field}
}

// UserProfile is the only shape a user leaves the service in.
type UserProfile struct {
	ID          uint64    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Avatar      string    `json:"avatar"`
	Gender      string    `json:"gender,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type SessionData struct {
	UserProfile
	AccessToken string `json:"accessToken"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type TotalUsersResponse struct {
	Total int64 `json:"total"`
}

type UserListResponse struct {
	Users []UserProfile `json:"users"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

type DeleteUsersResponse struct {
	Deleted int `json:"deleted"`
}

func NewUserProfile(user *entity.User) UserProfile {
	return UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhoneNumber: user.PhoneNumber.String,
		Avatar:      user.Avatar,
		Gender:      user.Gender.String,
		Role:        user.Role,
		Status:      user.Status,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
