package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tavola/internal/metrics"
)

func TestSoupActivationScenario(t *testing.T) {
	reg := metrics.NewRegistry()
	e := newTestEngine(t, WithMetrics(reg))
	soup := newSoup(t, e)
	ctx := context.Background()

	if err := e.RemoveComposition(ctx, soup.compB.ID); err != nil {
		t.Fatalf("remove B: %v", err)
	}
	if _, err := e.SetIngredientAvailability(ctx, soup.a.ID, false); err != nil {
		t.Fatalf("mark A unavailable: %v", err)
	}

	_, err := e.SetDishActive(ctx, soup.dish.ID, true)
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	var activationErr *ActivationError
	if !errors.As(err, &activationErr) {
		t.Fatalf("expected *ActivationError, got %T", err)
	}
	if len(activationErr.Ingredients) != 1 || activationErr.Ingredients[0] != "A" {
		t.Fatalf("expected ingredient A to be reported, got %v", activationErr.Ingredients)
	}
	if storedActive(t, e, soup.dish.ID) {
		t.Fatal("rejected activation must leave the dish inactive")
	}

	if _, err := e.SetIngredientAvailability(ctx, soup.a.ID, true); err != nil {
		t.Fatalf("mark A available: %v", err)
	}
	dish, err := e.SetDishActive(ctx, soup.dish.ID, true)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !dish.Active || !storedActive(t, e, soup.dish.ID) {
		t.Fatal("expected dish to be active")
	}

	if got := testutil.ToFloat64(reg.ActivationRejections); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(reg.ActivationChecks); got != 2 {
		t.Fatalf("expected 2 checks, got %v", got)
	}
}

func TestGuardAllowsDeactivation(t *testing.T) {
	e := newTestEngine(t)
	soup := newSoup(t, e)
	ctx := context.Background()

	if _, err := e.SetDishActive(ctx, soup.dish.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := e.SetIngredientAvailability(ctx, soup.a.ID, false); err != nil {
		t.Fatalf("mark A unavailable: %v", err)
	}
	if !storedActive(t, e, soup.dish.ID) {
		t.Fatal("ingredient availability must not deactivate dishes")
	}

	if err := e.OnActivationRequested(ctx, nil, soup.dish.ID, false); err != nil {
		t.Fatalf("deactivation check: %v", err)
	}
	if _, err := e.SetDishActive(ctx, soup.dish.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if storedActive(t, e, soup.dish.ID) {
		t.Fatal("expected dish to be inactive")
	}
}

func TestGuardAllowsDishWithoutComposition(t *testing.T) {
	e := newTestEngine(t)

	dish, err := e.CreateDish(context.Background(), DishInput{Name: "Bread basket"})
	if err != nil {
		t.Fatalf("create dish: %v", err)
	}
	if err := e.OnActivationRequested(context.Background(), nil, dish.ID, true); err != nil {
		t.Fatalf("expected empty dish to pass, got %v", err)
	}
}

func TestGuardListsEveryUnavailableIngredient(t *testing.T) {
	e := newTestEngine(t)
	soup := newSoup(t, e)
	ctx := context.Background()

	for _, id := range []uint{soup.b.ID, soup.a.ID} {
		if _, err := e.SetIngredientAvailability(ctx, id, false); err != nil {
			t.Fatalf("mark ingredient unavailable: %v", err)
		}
	}
	err := e.OnActivationRequested(ctx, nil, soup.dish.ID, true)
	var activationErr *ActivationError
	if !errors.As(err, &activationErr) {
		t.Fatalf("expected *ActivationError, got %v", err)
	}
	if got := activationErr.Ingredients; len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("expected [A B], got %v", got)
	}
	if activationErr.Error() != "cannot activate dish 1: unavailable ingredients: A, B" {
		t.Fatalf("unexpected message %q", activationErr.Error())
	}
}

func TestCreateActiveDishIsGuarded(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	active := true
	dish, err := e.CreateDish(ctx, DishInput{Name: "Toast", Active: &active})
	if err != nil {
		t.Fatalf("create active dish: %v", err)
	}
	if !storedActive(t, e, dish.ID) {
		t.Fatal("expected empty dish to be created active")
	}
}

func TestUpdateDishRejectedActivationRollsBack(t *testing.T) {
	e := newTestEngine(t)
	soup := newSoup(t, e)
	ctx := context.Background()

	if _, err := e.SetIngredientAvailability(ctx, soup.b.ID, false); err != nil {
		t.Fatalf("mark B unavailable: %v", err)
	}
	active := true
	_, err := e.UpdateDish(ctx, soup.dish.ID, DishInput{Name: "Renamed soup", Price: dec(t, "7"), Active: &active})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	dish, err := e.Dish(ctx, soup.dish.ID)
	if err != nil {
		t.Fatalf("load dish: %v", err)
	}
	if dish.Name != "Soup" || dish.Active {
		t.Fatalf("expected rejected update to roll back, got name=%q active=%v", dish.Name, dish.Active)
	}
	assertDecimal(t, "total untouched", dish.TotalCalories, "85")
}
