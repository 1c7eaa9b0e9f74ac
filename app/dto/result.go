package dto

import "github.com/vibast-solutions/ms-go-blog-auth/app/entity"

// SessionResult is returned by every flow that opens a session. The refresh
// token goes to the cookie, never to the response body.
type SessionResult struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
}

type RecoveryResult struct {
	// Sent is false when a pending code was left in place.
	Sent bool
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []*entity.User
	Page  int
	Limit int
	Total int64
}
