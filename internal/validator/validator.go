package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidGroupName = errors.New("invalid group name")
	ErrInvalidJoinCode  = errors.New("invalid join code format")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	joinCodeRegex = regexp.MustCompile(`^[A-F0-9]{6}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateGroupName(name string) error {
	if len(name) == 0 || len(name) > 80 {
		return ErrInvalidGroupName
	}
	return nil
}

func ValidateJoinCode(code string) error {
	if !joinCodeRegex.MatchString(code) {
		return ErrInvalidJoinCode
	}
	return nil
}
