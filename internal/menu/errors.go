package menu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConstraintViolation reports a state transition vetoed by the availability guard.
	ErrConstraintViolation = errors.New("menu: constraint violation")
	// ErrRecomputation reports a failed calorie recomputation; the surrounding transaction is rolled back.
	ErrRecomputation = errors.New("menu: calorie recomputation failed")

	ErrDishNotFound          = errors.New("menu: dish not found")
	ErrDishTypeNotFound      = errors.New("menu: dish type not found")
	ErrIngredientNotFound    = errors.New("menu: ingredient not found")
	ErrMicronutrientNotFound = errors.New("menu: micronutrient not found")
	ErrCompositionNotFound   = errors.New("menu: composition row not found")
	ErrDuplicateComposition  = errors.New("menu: ingredient already part of dish")
	ErrIngredientInUse       = errors.New("menu: ingredient is used by a dish")
	ErrInvalidInput          = errors.New("menu: invalid input")
)

// ActivationError is returned when a dish cannot be activated because some of
// its ingredients are currently unavailable.
type ActivationError struct {
	DishID      uint
	Ingredients []string
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("cannot activate dish %d: unavailable ingredients: %s", e.DishID, strings.Join(e.Ingredients, ", "))
}

func (e *ActivationError) Unwrap() error {
	return ErrConstraintViolation
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
