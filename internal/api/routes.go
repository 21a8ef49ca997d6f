package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/storage"
)

// SetupRoutes configures all API routes. Returns the top-level mux.
func SetupRoutes(h *Handlers, sessions *SessionManager) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - allow credentials for session cookies
	origins := h.config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Provider webhooks authenticate by signature, not session.
	r.Post("/webhooks/stripe", h.StripeWebhook)
	r.Post("/webhooks/prodigi", h.ProdigiWebhook)

	// Share links are public bearer URLs.
	r.Get("/share/{token}", h.ResolveShareToken)

	// Session issuance: in dev mode only, so the API can be driven
	// without the upstream identity provider.
	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"
	if devMode {
		r.Post("/auth/session", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				UserID string `json:"user_id"`
				Admin  bool   `json:"admin"`
			}
			if !httputil.Decode(w, req, &body) {
				return
			}
			if body.UserID == "" {
				httputil.BadRequest(w, "user_id is required")
				return
			}
			sessions.Issue(w, body.UserID, body.Admin)
			httputil.OK(w, map[string]string{"user_id": body.UserID})
		})
	}
	r.Post("/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		sessions.Clear(w)
		httputil.NoContent(w)
	})

	// Local storage serves uploaded assets directly; S3 serves its own.
	if local, ok := h.store.(*storage.LocalStore); ok {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(local.Root())))
		r.Get("/files/*", fs.ServeHTTP)
	}

	// API routes (session required)
	r.Route("/api", func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/session", func(w http.ResponseWriter, req *http.Request) {
			httputil.OK(w, map[string]interface{}{
				"user_id": userID(req.Context()),
				"admin":   isAdmin(req.Context()),
			})
		})

		r.Route("/storybooks", func(r chi.Router) {
			r.Get("/", h.ListStorybooks)
			r.Post("/", h.GenerateStorybook)
			r.Get("/{id}", h.GetStorybook)
			r.Put("/{id}", h.UpdateStorybook)
			r.Delete("/{id}", h.DeleteStorybook)
			r.Put("/{id}/visibility", h.SetStorybookVisibility)
			r.Get("/{id}/share", h.ShareStorybook)
		})

		r.Get("/gallery", h.GetGallery)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
			r.Delete("/", h.ClearCart)
		})

		r.Post("/checkout", h.Checkout)

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.ListPurchases)
			r.Get("/{id}", h.GetPurchase)
			r.Get("/{id}/download", h.DownloadPurchase)
		})
		r.Get("/orders/{ref}/invoice", h.DownloadInvoice)

		r.Route("/print-orders", func(r chi.Router) {
			r.Get("/", h.ListPrintOrders)
			r.Get("/{id}", h.GetPrintOrder)
			r.Get("/{id}/history", h.GetPrintOrderHistory)
		})

		// Admin surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Route("/print-orders", func(r chi.Router) {
				r.Get("/", h.AdminListPrintOrders)
				r.Get("/{id}", h.AdminGetPrintOrder)
				r.Post("/{id}/transition", h.AdminTransitionPrintOrder)
				r.Post("/{id}/cancel", h.AdminCancelPrintOrder)
				r.Get("/{id}/notes", h.AdminListOrderNotes)
				r.Post("/{id}/notes", h.AdminAddOrderNote)
				r.Get("/{id}/history", h.AdminGetOrderHistory)
			})
		})
	})

	return r
}
