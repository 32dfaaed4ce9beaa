package domain

import "errors"

var (
	// ErrInvalidTransition is returned when an intent does not apply to the current page.
	ErrInvalidTransition = errors.New("intent not allowed on current page")
	// ErrInvalidSettings wraps validation failures of QuizSettings.
	ErrInvalidSettings = errors.New("invalid quiz settings")
	// ErrQuestionsUnavailable indicates the provider returned no usable questions.
	ErrQuestionsUnavailable = errors.New("error loading questions, please try again")
	// ErrProfileNotFound is returned when acting on a profile that has not connected.
	ErrProfileNotFound = errors.New("browser profile not connected")
	// ErrMachineClosed is returned by a machine that has been released.
	ErrMachineClosed = errors.New("quiz machine closed")
)
