package server

import (
	"context"
	"net/http"

	"tavola/internal/handlers"
	applog "tavola/internal/log"
	"tavola/internal/metrics"
)

func newRouter(reg *metrics.Registry) http.Handler {
	mux := http.NewServeMux()
	ctx := context.Background()
	applog.Debug(ctx, "registering http routes")

	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/login", handlers.Login)
	mux.HandleFunc("/logout", handlers.Logout)
	mux.HandleFunc("/menu", handlers.MenuBoard)
	if reg != nil {
		mux.Handle("/metrics", reg.Handler())
		applog.Debug(ctx, "route registered", "path", "/metrics")
	}

	protected := map[string]http.HandlerFunc{
		"/api/dish-types":         handlers.DishTypeResource,
		"/api/dishes":             handlers.DishResource,
		"/api/dishes/":            handlers.DishResource,
		"/api/dish-compositions":  handlers.DishCompositionResource,
		"/api/dish-compositions/": handlers.DishCompositionResource,
		"/api/ingredients":        handlers.IngredientResource,
		"/api/ingredients/":       handlers.IngredientResource,
		"/api/micronutrients":     handlers.MicronutrientResource,
		"/api/daily-norms":        handlers.DailyNormResource,
		"/api/supplier-sheets":    handlers.SupplierSheetResource,
	}
	for path, h := range protected {
		mux.Handle(path, handlers.RequireAuthentication(h))
		applog.Debug(ctx, "route registered", "path", path, "protected", true)
	}

	mux.Handle("/api/maintenance/audit", handlers.RequireManager(http.HandlerFunc(handlers.CalorieAudit)))
	mux.Handle("/api/maintenance/recompute", handlers.RequireManager(http.HandlerFunc(handlers.RecomputeCalories)))
	applog.Debug(ctx, "route registered", "path", "/api/maintenance/", "role", "manager")

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/menu", http.StatusFound)
	})
	return mux
}
