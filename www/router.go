// Package www serves the JSON API over chi.
package www

import (
	"net/http"

	"batchtrack/batch"
	"batchtrack/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine  *engine.Engine
	cookies *cookieStore
	files   *attachmentStore
}

// NewRouter creates the chi router.
func NewRouter(eng *engine.Engine) http.Handler {
	cfg := eng.AppConfig()
	h := &Handlers{
		engine:  eng,
		cookies: newCookieStore(cfg.Web.CookieName, cfg.Web.SessionSecret),
		files:   newAttachmentStore(cfg.Attachments),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/api/health", h.apiHealth)
	if m := eng.Metrics(); m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Post("/api/login", h.apiLogin)
	r.Post("/api/logout", h.apiLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/download/*", h.handleDownload)

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", h.apiMe)
			r.Get("/sessions", h.apiListSessions)

			r.Get("/config/record_fields", h.apiRecordFields)
			r.Get("/segment_definitions", h.apiSegmentDefinitions)
			r.Get("/process_segments", h.apiProcessSegments)
			r.Get("/dashboard", h.apiDashboard)

			r.Get("/batches", h.apiListBatches)
			r.With(require(batch.CapCreateBatch)).Post("/batches", h.apiCreateBatch)
			r.With(require(batch.CapDeleteBatch)).Delete("/batches/delete", h.apiDeleteBatchesMatching)

			r.Route("/batches/{id}", func(r chi.Router) {
				r.Get("/", h.apiGetBatch)
				r.With(require(batch.CapUpdateBatch)).Put("/", h.apiUpdateBatch)
				r.With(require(batch.CapDeleteBatch)).Delete("/", h.apiDeleteBatch)
				r.With(require(batch.CapAdvanceBatch)).Post("/duplicate", h.apiAdvanceBatch)

				r.With(require(batch.CapListMaterial)).Get("/materials", h.apiListMaterials)
				r.With(require(batch.CapWriteMaterial)).Post("/materials", h.apiAddMaterial)
				r.With(require(batch.CapWriteMaterial)).Put("/materials/{recordID}", h.apiUpdateMaterial)
				r.With(require(batch.CapWriteMaterial)).Delete("/materials/{recordID}", h.apiDeleteMaterial)

				r.With(require(batch.CapListEquipment)).Get("/equipment", h.apiListEquipment)
				r.With(require(batch.CapWriteEquipment)).Post("/equipment", h.apiAddEquipment)
				r.With(require(batch.CapWriteEquipment)).Put("/equipment/{recordID}", h.apiUpdateEquipment)
				r.With(require(batch.CapWriteEquipment)).Delete("/equipment/{recordID}", h.apiDeleteEquipment)

				r.With(require(batch.CapListQuality)).Get("/quality", h.apiListQuality)
				r.With(require(batch.CapWriteQuality)).Post("/quality", h.apiAddQuality)
				r.With(require(batch.CapWriteQuality)).Put("/quality/{recordID}", h.apiUpdateQuality)
				r.With(require(batch.CapWriteQuality)).Delete("/quality/{recordID}", h.apiDeleteQuality)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/users", h.apiListUsers)
				r.Post("/users", h.apiCreateUser)
			})
			r.Post("/config/password", h.apiChangePassword)
		})
	})

	return r
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
