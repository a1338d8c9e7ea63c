package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"tavola/models"
)

func TestIngredientUpdateCascadesAndDeleteGuard(t *testing.T) {
	_, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	oil := decodeBody[models.Ingredient](t, doJSON(t, IngredientResource, http.MethodPost, "/api/ingredients", map[string]any{"name": "Olive oil", "calories": 884, "price": "9.80", "weight": 1000}))
	dish := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodPost, "/api/dishes", map[string]any{"name": "Bruschetta", "price": 4}))
	comp := decodeBody[compositionResponse](t, doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", map[string]any{"dish_id": dish.ID, "ingredient_id": oil.ID, "quantity": 10}))

	w := doJSON(t, IngredientResource, http.MethodPut, fmt.Sprintf("/api/ingredients/%d", oil.ID), map[string]any{"name": "Olive oil", "calories": 900, "price": "9.80", "weight": 1000})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 updating ingredient, got %d: %s", w.Code, w.Body.String())
	}
	shown := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodGet, fmt.Sprintf("/api/dishes/%d", dish.ID), nil))
	if !shown.TotalCalories.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected cascaded total 90, got %s", shown.TotalCalories)
	}

	w = doJSON(t, IngredientResource, http.MethodDelete, fmt.Sprintf("/api/ingredients/%d", oil.ID), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting used ingredient, got %d", w.Code)
	}

	doJSON(t, DishCompositionResource, http.MethodDelete, fmt.Sprintf("/api/dish-compositions/%d", comp.ID), nil)
	w = doJSON(t, IngredientResource, http.MethodDelete, fmt.Sprintf("/api/ingredients/%d", oil.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting unused ingredient, got %d: %s", w.Code, w.Body.String())
	}

	listed := decodeBody[[]models.Ingredient](t, doJSON(t, IngredientResource, http.MethodGet, "/api/ingredients", nil))
	if len(listed) != 0 {
		t.Fatalf("expected no ingredients, got %+v", listed)
	}
}

func TestCompositionDuplicateConflict(t *testing.T) {
	_, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	salt := decodeBody[models.Ingredient](t, doJSON(t, IngredientResource, http.MethodPost, "/api/ingredients", map[string]any{"name": "Salt", "calories": 0}))
	dish := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodPost, "/api/dishes", map[string]any{"name": "Broth", "price": 3}))
	payload := map[string]any{"dish_id": dish.ID, "ingredient_id": salt.ID, "quantity": 1}

	if w := doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", payload); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", payload); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate row, got %d: %s", w.Code, w.Body.String())
	}
	rows := decodeBody[[]compositionResponse](t, doJSON(t, DishCompositionResource, http.MethodGet, fmt.Sprintf("/api/dish-compositions?dish_id=%d", dish.ID), nil))
	if len(rows) != 1 {
		t.Fatalf("expected one composition row, got %+v", rows)
	}
}

func TestCalorieAuditEndpoint(t *testing.T) {
	eng, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	dish := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodPost, "/api/dishes", map[string]any{"name": "Broth", "price": 3}))
	if err := eng.DB().Model(&models.Dish{}).Where("id = ?", dish.ID).UpdateColumn("total_calories", "7").Error; err != nil {
		t.Fatalf("failed to corrupt total: %v", err)
	}

	audit := decodeBody[auditResponse](t, doJSON(t, CalorieAudit, http.MethodGet, "/api/maintenance/audit", nil))
	if audit.Consistent || len(audit.Drifts) != 1 {
		t.Fatalf("expected drift, got %+v", audit)
	}

	w := doJSON(t, RecomputeCalories, http.MethodPost, "/api/maintenance/recompute", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	audit = decodeBody[auditResponse](t, doJSON(t, CalorieAudit, http.MethodGet, "/api/maintenance/audit", nil))
	if !audit.Consistent {
		t.Fatalf("expected consistent totals, got %+v", audit)
	}
}
