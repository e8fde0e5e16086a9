package authsvc

import (
	"regexp"
	"strings"

	"github.com/pmayland/taskboard/internal/domain"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// emailPattern accepts anything shaped local@domain.tld. Deliverability is
// the mail system's problem, not ours.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lower-cases and trims an email address so uniqueness
// checks and lookups agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks the minimum length rule on the trimmed username.
func ValidateUsername(username string) error {
	if len(strings.TrimSpace(username)) < minUsernameLength {
		return domain.Invalid("username", "Username must be at least 3 characters")
	}

	return nil
}

// ValidateEmail checks the address is syntactically valid after normalization.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return domain.Invalid("email", "Must be a valid email")
	}

	return nil
}

// ValidateNewPassword checks the minimum length rule for registration.
func ValidateNewPassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.Invalid("password", "Password must be at least 6 characters")
	}

	return nil
}

// ValidateLoginPassword checks the password field is present on login.
func ValidateLoginPassword(password string) error {
	if password == "" {
		return domain.Invalid("password", "Password is required")
	}

	return nil
}

// ValidateRegistration runs the registration rules in order and returns the
// first violation only.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	if err := ValidateEmail(email); err != nil {
		return err
	}

	return ValidateNewPassword(password)
}

// ValidateLogin runs the login rules in order and returns the first
// violation only.
func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	return ValidateLoginPassword(password)
}
