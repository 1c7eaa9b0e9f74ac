package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
)

const (
	displayNameMinLength = 4
	displayNameMaxLength = 14

	socialDisplayNameMaxLength = 64

	// bcrypt refuses inputs longer than this many bytes.
	passwordMaxBytes = 72
)

var (
	displayNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	phoneNumberPattern = regexp.MustCompile(`^0\d{9}$`)
)

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidField(field, "is required")
	}
	return nil
}

func validateEmail(email string) error {
	if !IsValidEmail(email) {
		return invalidField("email", "is not a valid email address")
	}
	return nil
}

func validatePassword(field, password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return invalidField(field, "is too short")
	}
	if len(password) > passwordMaxBytes {
		return invalidField(field, "is too long")
	}
	return nil
}

func validateDisplayName(name string) error {
	length := utf8.RuneCountInString(name)
	if length < displayNameMinLength || length > displayNameMaxLength {
		return invalidField("displayName", "must be between 4 and 14 characters")
	}
	if !displayNamePattern.MatchString(name) {
		return invalidField("displayName", "may only contain letters and digits")
	}
	return nil
}

// validatePhoneNumber accepts the empty string, which clears the number.
func validatePhoneNumber(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneNumberPattern.MatchString(phone) {
		return invalidField("phoneNumber", "must be 10 digits starting with 0")
	}
	return nil
}

func validateGender(gender string) error {
	switch gender {
	case "", entity.GenderMale, entity.GenderFemale:
		return nil
	}
	return invalidField("gender", "must be male or female")
}

func validateRole(role string) error {
	switch role {
	case entity.RoleUser, entity.RoleAdmin:
		return nil
	}
	return invalidField("role", "must be user or admin")
}

func validateStatus(status string) error {
	switch status {
	case entity.StatusActive, entity.StatusLocked:
		return nil
	}
	return invalidField("status", "must be active or locked")
}

// normalizeSocialDisplayName lowercases the name and strips every space.
// Provider names skip the 4-14 rule and are only cut to the column width.
func normalizeSocialDisplayName(name string) string {
	normalized := []rune(strings.ToLower(strings.Join(strings.Fields(name), "")))
	if len(normalized) > socialDisplayNameMaxLength {
		normalized = normalized[:socialDisplayNameMaxLength]
	}
	return string(normalized)
}
