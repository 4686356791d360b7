package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 100

var (
	// ErrNameEmpty indicates that a display name is empty
	ErrNameEmpty = errors.New("name cannot be empty")

	// ErrNameTooLong indicates that a display name exceeds the maximum length
	ErrNameTooLong = errors.New("name exceeds maximum length of 100 characters")

	// ErrInvalidEmail indicates that an email is not of the form local@domain.tld
	ErrInvalidEmail = errors.New("email must look like name@example.com")

	// ErrInvalidMobile indicates that a mobile number is not 4 to 15 digits
	ErrInvalidMobile = errors.New("mobile must be 4 to 15 digits, optionally prefixed with +")
)

var (
	emailRegex  = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)+$`)
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{4,15}$`)
)

// ValidateName checks a display name after trimming
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateEmail checks an already normalized email
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateMobile checks a mobile number once spaces and hyphens are removed
func ValidateMobile(mobile string) error {
	if !mobileRegex.MatchString(SanitizeMobile(mobile)) {
		return ErrInvalidMobile
	}
	return nil
}

// SanitizeMobile strips the separators people type into phone numbers
func SanitizeMobile(mobile string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(mobile))
}
