package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is not 8 digits
	ErrInvalidLength = errors.New("phone number must be exactly 8 digits")

	// ErrInvalidPrefix indicates phone number doesn't start with a valid Salvadoran prefix
	ErrInvalidPrefix = errors.New("phone number must start with 2, 6 or 7")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

const countryCode = "503"

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles El Salvador phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Salvadoran phone number.
// Accepts 70001234, 7000-1234, +503 7000 1234 and similar.
// Returns the sanitized number (8 digits) and error if invalid.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 8 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes separators and the country code
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "").Replace(phone)

	if strings.HasPrefix(phone, countryCode) && len(phone) == 11 {
		phone = phone[len(countryCode):]
	}

	return phone
}

// IsValidPrefix checks for a landline (2) or mobile (6, 7) prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if phone == "" {
		return false
	}
	switch phone[0] {
	case '2', '6', '7':
		return true
	}
	return false
}

// Format formats a phone number as +503 XXXX-XXXX
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("+%s %s-%s", countryCode, sanitized[0:4], sanitized[4:8]), nil
}

// IsMobile reports whether the number is a mobile line
func (v *PhoneValidator) IsMobile(phone string) bool {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return false
	}
	return sanitized[0] == '6' || sanitized[0] == '7'
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
