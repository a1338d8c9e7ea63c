package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"tavola/models"
)

func doJSON(t *testing.T, handler http.HandlerFunc, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(w.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return value
}

func TestDishSoupScenarioOverHTTP(t *testing.T) {
	_, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	w := doJSON(t, IngredientResource, http.MethodPost, "/api/ingredients", map[string]any{"name": "A", "calories": 200})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating A, got %d: %s", w.Code, w.Body.String())
	}
	a := decodeBody[models.Ingredient](t, w)
	b := decodeBody[models.Ingredient](t, doJSON(t, IngredientResource, http.MethodPost, "/api/ingredients", map[string]any{"name": "B", "calories": "50"}))

	w = doJSON(t, DishResource, http.MethodPost, "/api/dishes", map[string]any{"name": "Soup", "price": "6.50", "total_calories": 999})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating dish, got %d: %s", w.Code, w.Body.String())
	}
	soup := decodeBody[models.Dish](t, w)
	if !soup.TotalCalories.IsZero() {
		t.Fatalf("client supplied totals must be ignored, got %s", soup.TotalCalories)
	}

	w = doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", map[string]any{"dish_id": soup.ID, "ingredient_id": a.ID, "quantity": 40})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 adding A, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", map[string]any{"dish_id": soup.ID, "ingredient_id": b.ID, "quantity": 10})
	compB := decodeBody[compositionResponse](t, w)
	if compB.Ingredient == nil || compB.Ingredient.Name != "B" || compB.Unit != "g" {
		t.Fatalf("unexpected composition response %+v", compB)
	}

	dishPath := fmt.Sprintf("/api/dishes/%d", soup.ID)
	shown := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodGet, dishPath, nil))
	if !shown.TotalCalories.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected 85 kcal, got %s", shown.TotalCalories)
	}
	if len(shown.Composition) != 2 {
		t.Fatalf("expected two composition rows, got %d", len(shown.Composition))
	}

	w = doJSON(t, DishCompositionResource, http.MethodDelete, fmt.Sprintf("/api/dish-compositions/%d", compB.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 removing B, got %d", w.Code)
	}
	shown = decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodGet, dishPath, nil))
	if !shown.TotalCalories.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected 80 kcal, got %s", shown.TotalCalories)
	}

	w = doJSON(t, IngredientResource, http.MethodPut, fmt.Sprintf("/api/ingredients/%d/availability", a.ID), map[string]any{"available": false})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 marking A unavailable, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, DishResource, http.MethodPut, dishPath+"/activation", map[string]any{"active": true})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 activating with unavailable A, got %d: %s", w.Code, w.Body.String())
	}
	rejected := decodeBody[activationErrorResponse](t, w)
	if rejected.Error != "cannot activate: unavailable ingredients" || len(rejected.Ingredients) != 1 || rejected.Ingredients[0] != "A" {
		t.Fatalf("unexpected rejection %+v", rejected)
	}

	doJSON(t, IngredientResource, http.MethodPut, fmt.Sprintf("/api/ingredients/%d/availability", a.ID), map[string]any{"available": true})
	w = doJSON(t, DishResource, http.MethodPut, dishPath+"/activation", map[string]any{"active": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 activating, got %d: %s", w.Code, w.Body.String())
	}
	if activated := decodeBody[models.Dish](t, w); !activated.Active {
		t.Fatal("expected dish to be active")
	}

	listed := decodeBody[[]models.Dish](t, doJSON(t, DishResource, http.MethodGet, "/api/dishes?active=true", nil))
	if len(listed) != 1 || listed[0].ID != soup.ID {
		t.Fatalf("expected soup in active listing, got %+v", listed)
	}
}

func TestDishResourceErrors(t *testing.T) {
	_, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	tests := []struct {
		name    string
		method  string
		path    string
		payload any
		want    int
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/dishes", payload: map[string]any{"price": 1}, want: http.StatusBadRequest},
		{name: "missing price", method: http.MethodPost, path: "/api/dishes", payload: map[string]any{"name": "Soup"}, want: http.StatusBadRequest},
		{name: "negative price", method: http.MethodPost, path: "/api/dishes", payload: map[string]any{"name": "Soup", "price": -1}, want: http.StatusBadRequest},
		{name: "unknown type", method: http.MethodPost, path: "/api/dishes", payload: map[string]any{"name": "Soup", "price": 1, "type_id": 9}, want: http.StatusNotFound},
		{name: "unknown dish", method: http.MethodGet, path: "/api/dishes/42", want: http.StatusNotFound},
		{name: "bad identifier", method: http.MethodGet, path: "/api/dishes/soup", want: http.StatusNotFound},
		{name: "unknown action", method: http.MethodGet, path: "/api/dishes/1/reviews", want: http.StatusNotFound},
		{name: "activation requires flag", method: http.MethodPut, path: "/api/dishes/1/activation", payload: map[string]any{}, want: http.StatusBadRequest},
		{name: "nutrition of unknown dish", method: http.MethodGet, path: "/api/dishes/42/nutrition", want: http.StatusNotFound},
		{name: "method not allowed", method: http.MethodPatch, path: "/api/dishes", want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, DishResource, tt.method, tt.path, tt.payload)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestDishNutritionEndpoint(t *testing.T) {
	eng, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	ingredient := decodeBody[models.Ingredient](t, doJSON(t, IngredientResource, http.MethodPost, "/api/ingredients", map[string]any{"name": "Spinach", "calories": 23}))
	vitaminC := decodeBody[models.Micronutrient](t, doJSON(t, MicronutrientResource, http.MethodPost, "/api/micronutrients", map[string]any{"name": "Vitamin C", "unit": "mg"}))

	w := doJSON(t, IngredientResource, http.MethodPut, fmt.Sprintf("/api/ingredients/%d/micronutrients", ingredient.ID), map[string]any{
		"micronutrients": []map[string]any{{"micronutrient_id": vitaminC.ID, "amount": "28"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 storing densities, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, DailyNormResource, http.MethodPut, "/api/daily-norms", map[string]any{"micronutrient_id": vitaminC.ID, "age_group": "19-30", "amount": 70})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 storing norm, got %d: %s", w.Code, w.Body.String())
	}

	dish := decodeBody[models.Dish](t, doJSON(t, DishResource, http.MethodPost, "/api/dishes", map[string]any{"name": "Salad", "price": 5}))
	doJSON(t, DishCompositionResource, http.MethodPost, "/api/dish-compositions", map[string]any{"dish_id": dish.ID, "ingredient_id": ingredient.ID, "quantity": 50})

	w = doJSON(t, DishResource, http.MethodGet, fmt.Sprintf("/api/dishes/%d/nutrition?age_group=19-30&gender=female", dish.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[nutritionResponse](t, w)
	if !resp.Profile["Vitamin C"].Equal(decimal.NewFromInt(14)) {
		t.Fatalf("expected 14 mg vitamin C, got %v", resp.Profile)
	}
	if len(resp.Comparisons) != 1 || resp.Comparisons[0].PercentOfNorm == nil || !resp.Comparisons[0].PercentOfNorm.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20%% of norm, got %+v", resp.Comparisons)
	}

	var total models.Dish
	if err := eng.DB().First(&total, dish.ID).Error; err != nil {
		t.Fatalf("failed to load dish: %v", err)
	}
	if !total.TotalCalories.Equal(decimal.RequireFromString("11.5")) {
		t.Fatalf("expected 11.5 kcal, got %s", total.TotalCalories)
	}
}

func TestDishTypeResource(t *testing.T) {
	_, cleanup := withTestEngine(t)
	t.Cleanup(cleanup)

	w := doJSON(t, DishTypeResource, http.MethodPost, "/api/dish-types", map[string]any{"name": "Soups"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, DishTypeResource, http.MethodPost, "/api/dish-types", map[string]any{"name": "Soups"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d: %s", w.Code, w.Body.String())
	}
	types := decodeBody[[]models.DishType](t, doJSON(t, DishTypeResource, http.MethodGet, "/api/dish-types", nil))
	if len(types) != 1 || types[0].Name != "Soups" {
		t.Fatalf("unexpected dish types %+v", types)
	}
}
