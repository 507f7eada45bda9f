package service

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

const (
	maxPasswordBytes = 128
	minNameLetters   = 2
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)
	validate        = validator.New()
)

func validateRegistration(in ports.RegisterInput) error {
	if in.Identifier == "" {
		return domain.NewValidationError("identifier", domain.ReasonMissingField)
	}
	if in.Password == "" {
		return domain.NewValidationError("password", domain.ReasonMissingField)
	}
	if err := validateIdentifier(in.Identifier); err != nil {
		return err
	}
	// Display names are optional at registration but must be real names when given.
	if in.FirstName != "" {
		if err := validateName("firstname", in.FirstName); err != nil {
			return err
		}
	}
	if in.LastName != "" {
		if err := validateName("lastname", in.LastName); err != nil {
			return err
		}
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return domain.NewValidationError("confirm_password", domain.ReasonPasswordMismatch)
	}
	return nil
}

func validateProfileUpdate(in ports.ProfileUpdateInput) error {
	if in.FirstName != nil {
		if err := validateName("firstname", *in.FirstName); err != nil {
			return err
		}
	}
	if in.LastName != nil {
		if err := validateName("lastname", *in.LastName); err != nil {
			return err
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			return domain.NewValidationError("password", domain.ReasonMissingField)
		}
		if err := validatePassword(*in.Password); err != nil {
			return err
		}
	}
	return nil
}

// validateIdentifier accepts either an email address or a plain username.
func validateIdentifier(id string) error {
	if validate.Var(id, "email") == nil || usernamePattern.MatchString(id) {
		return nil
	}
	return domain.NewValidationError("identifier", domain.ReasonBadFormat)
}

func validatePassword(pw string) error {
	if len(pw) > maxPasswordBytes {
		return domain.NewValidationError("password", domain.ReasonPasswordTooLong)
	}
	return nil
}

func validateName(field, name string) error {
	letters := 0
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minNameLetters {
		return domain.NewValidationError(field, domain.ReasonNameTooShort)
	}
	return nil
}
