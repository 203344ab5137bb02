package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"sundey-crm/internal/entities"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\- ]{6,19}$`)

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("reservation_status", isReservationStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("photo_type", isPhotoType); err != nil {
		return err
	}
	if err := v.RegisterValidation("phone", isPhoneNumber); err != nil {
		return err
	}
	return nil
}

func isReservationStatus(fl validator.FieldLevel) bool {
	return entities.ReservationStatus(fl.Field().String()).IsValid()
}

// isPhotoType accepts both the stored form (BEFORE) and the path form (before).
func isPhotoType(fl validator.FieldLevel) bool {
	return entities.PhotoType(strings.ToUpper(fl.Field().String())).IsValid()
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
