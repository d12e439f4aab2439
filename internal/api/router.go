package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(mgr ConfigManager, metrics MetricsSource) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{mgr: mgr, metrics: metrics}

	// Settings
	r.Get("/api/settings", h.getSettings)
	r.Post("/api/settings/general", h.setGeneralSettings)
	r.Get("/api/settings/export", h.exportSettings)
	r.Post("/api/settings/factoryReset", h.factoryReset)

	// Upload endpoints sit behind a rate limiter: each rewrites the full
	// settings store, and the UI has no business doing that in a tight loop.
	r.Group(func(r chi.Router) {
		r.Use(uploadLimiter)
		r.Post("/api/settings/import", h.importSettings)
		r.Post("/api/settings/hardwareConfig", h.uploadHandler("hardware config", mgr.SaveUploadedHardwareConfig))
		r.Post("/api/settings/hardwareSettings", h.uploadHandler("hardware settings", mgr.SaveUploadedHardwareSettings))
		r.Post("/api/settings/networkConfig", h.uploadHandler("network config", mgr.SaveUploadedNetworkConfig))
	})

	// Utilities
	r.Post("/api/utils/publishMetrics", h.publishMetrics)
	r.Get("/api/utils/networkInterfaces", h.networkInterfaces)
	r.Get("/api/utils/platformInfo", h.platformInfo)
	r.Post("/api/utils/restartProgram", h.restartProgram)
	r.Post("/api/utils/restartDevice", h.restartDevice)

	return r
}

// uploadLimiter allows a small burst of uploads, then one per second.
func uploadLimiter(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(1), 5)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "too many settings uploads", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
