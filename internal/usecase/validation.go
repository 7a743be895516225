package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xavierca1/salespilot/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const minPasswordLength = 8

var nonDigits = regexp.MustCompile(`\D`)

func ValidateSubmitLeadInput(input SubmitLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	errors = append(errors, validateEmail(input.Email)...)

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	} else if !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	if strings.TrimSpace(input.ServiceType) == "" {
		errors = append(errors, ValidationError{"serviceType", "is required"})
	}

	return errors
}

func ValidateCreateBookingInput(input CreateBookingInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadID) == "" {
		errors = append(errors, ValidationError{"leadId", "is required"})
	}
	if strings.TrimSpace(input.Date) == "" {
		errors = append(errors, ValidationError{"date", "is required"})
	} else if _, err := entity.ParseBookingDate(input.Date); err != nil {
		errors = append(errors, ValidationError{"date", "must be a valid date (YYYY-MM-DD or ISO8601)"})
	}
	if !entity.ValidTimeSlot(input.TimeSlot) {
		errors = append(errors, ValidationError{"timeSlot", "must be one of " + strings.Join(entity.TimeSlots, ", ")})
	}

	return errors
}

func ValidateCredentialsInput(input CredentialsInput) []ValidationError {
	errors := validateEmail(input.Email)
	if len(input.Password) < minPasswordLength {
		errors = append(errors, ValidationError{"password", fmt.Sprintf("must have at least %d characters", minPasswordLength)})
	}
	return errors
}

func validateEmail(email string) []ValidationError {
	if strings.TrimSpace(email) == "" {
		return []ValidationError{{"email", "is required"}}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return []ValidationError{{"email", "is invalid"}}
	}
	return nil
}

func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 7 && len(cleaned) <= 15
}
