package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/assetservice"
)

// NewRouter creates a chi router with all API routes mounted behind the auth
// middleware. events, if non-nil, is mounted at GET /teams/{teamID}/events.
func NewRouter(svc *assetservice.Service, auth AuthConfig, events EventServer) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	r.Get("/teams", h.ListTeams)
	r.Post("/teams", h.CreateTeam)

	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.Post("/members", h.AddMember)

		r.Route("/asset-types", func(r chi.Router) {
			r.Get("/", h.ListAssetTypes)
			r.Post("/", h.CreateAssetType)
			r.Get("/{id}", h.GetAssetType)
			r.Put("/{id}", h.UpdateAssetType)
			r.Delete("/{id}", h.DeleteAssetType)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Get("/{id}", h.GetAsset)
			r.Put("/{id}", h.UpdateAsset)
			r.Delete("/{id}", h.DeleteAsset)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.ListTags)
			r.Post("/", h.CreateTag)
			r.Get("/{id}", h.GetTag)
			r.Put("/{id}", h.UpdateTag)
			r.Delete("/{id}", h.DeleteTag)
		})

		r.Post("/search", h.Search)
		r.Post("/reindex", h.Reindex)

		r.Route("/filter-sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/filters", h.ClearSession)
			r.Put("/filters/{fieldID}", h.UpsertFilter)
			r.Put("/selection", h.SetSelection)
			r.Post("/search", h.SessionSearch)
		})

		if events != nil {
			r.Get("/events", h.Events)
		}
	})

	return r
}
