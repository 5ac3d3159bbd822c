package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func sessionID(r *http.Request) string { return chi.URLParam(r, "sessionID") }

// Search handles POST /api/teams/{teamID}/search.
//
//	@Summary		Search the team's assets with a raw filter expression
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Query, filter, facets and paging"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse	"Malformed filter expression"
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.Search(r.Context(), user(r), team(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reindex handles POST /api/teams/{teamID}/reindex.
//
//	@Summary		Rebuild the team's search index (admin only)
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	ReindexResponse
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reindex(r.Context(), user(r), team(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /api/teams/{teamID}/filter-sessions/{sessionID}.
//
//	@Summary		Filter session state and its compiled expression
//	@Tags			filter-sessions
//	@Produce		json
//	@Success		200	{object}	SessionView
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/filter-sessions/{sessionID} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Session(r.Context(), user(r), team(r), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ClearSession handles DELETE /api/teams/{teamID}/filter-sessions/{sessionID}/filters.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ClearSession(r.Context(), user(r), team(r), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpsertFilter handles PUT /api/teams/{teamID}/filter-sessions/{sessionID}/filters/{fieldID}.
//
//	@Summary		Replace the selected values of one field; an empty list removes the filter
//	@Tags			filter-sessions
//	@Accept			json
//	@Produce		json
//	@Param			fieldID	path		string			true	"Field id"
//	@Param			body	body		FilterRequest	true	"Conditions"
//	@Success		200		{object}	SessionView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/filter-sessions/{sessionID}/filters/{fieldID} [put]
func (h *Handler) UpsertFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.svc.UpsertSessionFilter(r.Context(), user(r), team(r), sessionID(r),
		chi.URLParam(r, "fieldID"), req.Conditions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetSelection handles PUT /api/teams/{teamID}/filter-sessions/{sessionID}/selection.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.svc.SetSessionSelection(r.Context(), user(r), team(r), sessionID(r), req.AssetTypeNames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SessionSearch handles POST /api/teams/{teamID}/filter-sessions/{sessionID}/search.
//
//	@Summary		Search with the session's filters; may auto-select a lone asset type
//	@Tags			filter-sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SessionSearchRequest	false	"Query and paging"
//	@Success		200		{object}	SessionSearchResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/filter-sessions/{sessionID}/search [post]
func (h *Handler) SessionSearch(w http.ResponseWriter, r *http.Request) {
	var req SessionSearchRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res, err := h.svc.SessionSearch(r.Context(), user(r), team(r), sessionID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
