package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/agenda-scheduler/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("clock_time", validateClockTime); err != nil {
		panic(fmt.Sprintf("failed to register clock_time validator: %v", err))
	}
	if err := Validate.RegisterValidation("slot_status", validateSlotStatus); err != nil {
		panic(fmt.Sprintf("failed to register slot_status validator: %v", err))
	}
}

// validateClockTime accepts an "HH:MM" string between 00:00 and 24:00.
// Empty strings pass so optional fields can be combined with required.
func validateClockTime(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := models.ParseClockTime(value)
	return err == nil
}

// validateSlotStatus validates that a string is a valid SlotStatus enum value
func validateSlotStatus(fl validator.FieldLevel) bool {
	return ValidateSlotStatus(fl.Field().String()) == nil
}

// ValidateSlotStatus validates a SlotStatus string value
func ValidateSlotStatus(value string) error {
	switch models.SlotStatus(value) {
	case models.SlotStatusPending, models.SlotStatusAccepted, models.SlotStatusCompleted, models.SlotStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'accepted', 'completed', or 'cancelled')", value)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
