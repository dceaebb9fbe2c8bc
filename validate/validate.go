// Package validate checks caller input before anything is sent to the site.
package validate

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"najdisi-sms/form"
)

const (
	AreaCodeLength    = 3
	PhoneNumberLength = 6
	MaxTextLength     = 160
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Username accepts any non-empty string, including whitespace.
func Username(username string) error {
	if username == "" {
		return invalid("username", "must not be empty")
	}
	return nil
}

// Password accepts any non-empty string, including whitespace.
func Password(password string) error {
	if password == "" {
		return invalid("password", "must not be empty")
	}
	return nil
}

func Credentials(username, password string) error {
	if err := Username(username); err != nil {
		return err
	}
	return Password(password)
}

func AreaCode(areaCode string) error {
	return digits("area code", areaCode, AreaCodeLength)
}

func PhoneNumber(phoneNumber string) error {
	return digits("phone number", phoneNumber, PhoneNumberLength)
}

// Text allows an empty message.
func Text(text string) error {
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return invalid("text", "%d characters exceeds the limit of %d", n, MaxTextLength)
	}
	return nil
}

func SmsRequest(areaCode, phoneNumber, text string) error {
	if err := AreaCode(areaCode); err != nil {
		return err
	}
	if err := PhoneNumber(phoneNumber); err != nil {
		return err
	}
	return Text(text)
}

// FieldSet is satisfied by *form.Snapshot.
type FieldSet interface {
	Has(name string) bool
}

// FormFields checks that a scraped form still has the fields we fill in.
// A missing field is reported as form.ErrInvalidForm.
func FormFields(formID string, fields FieldSet, required ...string) error {
	for _, name := range required {
		if !fields.Has(name) {
			return fmt.Errorf("%w: %s is missing field %q", form.ErrInvalidForm, formID, name)
		}
	}
	return nil
}

func digits(field, value string, length int) error {
	if len(value) != length {
		return invalid(field, "must be exactly %d digits", length)
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return invalid(field, "must be exactly %d digits", length)
		}
	}
	return nil
}
