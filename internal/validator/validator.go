package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidName        = errors.New("invalid project name")
	ErrInvalidLanguages   = errors.New("invalid language list")
	ErrDuplicateLanguages = errors.New("duplicate languages")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	languageRegex = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)
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

func ValidateProjectName(name string) error {
	if name == "" || len(name) > 120 {
		return ErrInvalidName
	}
	return nil
}

// ValidateLanguages checks language tags and rejects duplicates; order is
// preserved by the caller.
func ValidateLanguages(languages []string) error {
	if len(languages) == 0 {
		return ErrInvalidLanguages
	}
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		if !languageRegex.MatchString(lang) {
			return ErrInvalidLanguages
		}
		if _, dup := seen[lang]; dup {
			return ErrDuplicateLanguages
		}
		seen[lang] = struct{}{}
	}
	return nil
}
