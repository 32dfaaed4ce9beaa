package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"trivia-quiz/internal/domain"
)

var validate = validator.New()

// ValidateSettings checks amount, type, time limit and the optional filters before a fetch.
func ValidateSettings(settings domain.QuizSettings) error {
	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}
	return nil
}
