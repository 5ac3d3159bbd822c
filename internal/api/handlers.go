package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/authz"
)

// EventServer streams a team's change events to one client.
type EventServer interface {
	Serve(w http.ResponseWriter, r *http.Request, teamID string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *assetservice.Service
	events EventServer
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *assetservice.Service, events EventServer) *Handler {
	return &Handler{svc: svc, events: events}
}

func user(r *http.Request) string { return authz.UserFrom(r.Context()) }

func team(r *http.Request) string { return chi.URLParam(r, "teamID") }

func id(r *http.Request) string { return chi.URLParam(r, "id") }

// CreateTeam handles POST /api/teams.
//
//	@Summary		Create a team owned by the caller
//	@Tags			teams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTeamRequest	true	"Team to create"
//	@Success		201		{object}	models.Team
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams [post]
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.CreateTeam(r.Context(), user(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTeams handles GET /api/teams.
//
//	@Summary		List the caller's teams
//	@Tags			teams
//	@Produce		json
//	@Success		200	{array}	models.Team
//	@Security		BearerAuth
//	@Router			/teams [get]
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.ListTeams(r.Context(), user(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// AddMember handles POST /api/teams/{teamID}/members.
//
//	@Summary		Add a member or change its role (admin only)
//	@Tags			teams
//	@Accept			json
//	@Param			teamID	path	string				true	"Team id"
//	@Param			body	body	AddMemberRequest	true	"Member"
//	@Success		204
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.AddMember(r.Context(), user(r), team(r), req.UserID, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssetTypes handles GET /api/teams/{teamID}/asset-types.
//
//	@Summary		Asset-type hierarchy as a tree or a depth-first flat list
//	@Tags			asset-types
//	@Produce		json
//	@Param			teamID	path		string	true	"Team id"
//	@Param			view	query		string	false	"Shape"	Enums(tree, flat)
//	@Success		200		{object}	schema.Tree
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/asset-types [get]
func (h *Handler) ListAssetTypes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "flat" {
		flat, err := h.svc.Flatten(r.Context(), user(r), team(r), true)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, flat)
		return
	}
	tree, err := h.svc.Tree(r.Context(), user(r), team(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// GetAssetType handles GET /api/teams/{teamID}/asset-types/{id}.
//
//	@Summary		Get one asset type with its effective fields
//	@Tags			asset-types
//	@Produce		json
//	@Success		200	{object}	schema.Node
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/asset-types/{id} [get]
func (h *Handler) GetAssetType(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetAssetType(r.Context(), user(r), team(r), id(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateAssetType handles POST /api/teams/{teamID}/asset-types.
//
//	@Summary		Create an asset type
//	@Tags			asset-types
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssetTypeRequest	true	"Asset type"
//	@Success		201		{object}	schema.Node
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/asset-types [post]
func (h *Handler) CreateAssetType(w http.ResponseWriter, r *http.Request) {
	var req AssetTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.svc.CreateAssetType(r.Context(), user(r), team(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateAssetType handles PUT /api/teams/{teamID}/asset-types/{id}.
//
//	@Summary		Replace an asset type's name, parent and own fields
//	@Tags			asset-types
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssetTypeRequest	true	"Asset type"
//	@Success		200		{object}	schema.Node
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/asset-types/{id} [put]
func (h *Handler) UpdateAssetType(w http.ResponseWriter, r *http.Request) {
	var req AssetTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.svc.UpdateAssetType(r.Context(), user(r), team(r), id(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteAssetType handles DELETE /api/teams/{teamID}/asset-types/{id}.
//
//	@Summary		Delete an asset type; its children move to its parent
//	@Tags			asset-types
//	@Success		204
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/asset-types/{id} [delete]
func (h *Handler) DeleteAssetType(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAssetType(r.Context(), user(r), team(r), id(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssets handles GET /api/teams/{teamID}/assets.
//
//	@Summary		List assets, optionally of one type and its descendants
//	@Tags			assets
//	@Produce		json
//	@Param			assetTypeId	query	string	false	"Asset type id"
//	@Param			descendants	query	bool	false	"Include descendant types"
//	@Success		200			{array}	models.Asset
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/assets [get]
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	descendants, _ := strconv.ParseBool(q.Get("descendants"))
	assets, err := h.svc.ListAssets(r.Context(), user(r), team(r), assetservice.ListOptions{
		AssetTypeID:        q.Get("assetTypeId"),
		IncludeDescendants: descendants,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// GetAsset handles GET /api/teams/{teamID}/assets/{id}.
//
//	@Summary		Get one asset with the fields of its type
//	@Tags			assets
//	@Produce		json
//	@Success		200	{object}	AssetDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/assets/{id} [get]
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAsset(r.Context(), user(r), team(r), id(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CreateAsset handles POST /api/teams/{teamID}/assets.
//
//	@Summary		Create an asset
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssetRequest	true	"Asset"
//	@Success		201		{object}	AssetDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/assets [post]
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.CreateAsset(r.Context(), user(r), team(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAsset handles PUT /api/teams/{teamID}/assets/{id}.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.UpdateAsset(r.Context(), user(r), team(r), id(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAsset handles DELETE /api/teams/{teamID}/assets/{id}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAsset(r.Context(), user(r), team(r), id(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/teams/{teamID}/tags.
//
//	@Summary		List every tag of the team
//	@Tags			tags
//	@Produce		json
//	@Success		200	{array}	models.Tag
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), user(r), team(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// GetTag handles GET /api/teams/{teamID}/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.svc.GetTag(r.Context(), user(r), team(r), id(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// CreateTag handles POST /api/teams/{teamID}/tags.
//
//	@Summary		Create a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TagRequest	true	"Tag"
//	@Success		201		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.svc.CreateTag(r.Context(), user(r), team(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// UpdateTag handles PUT /api/teams/{teamID}/tags/{id}.
//
//	@Summary		Rename or move a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TagRequest	true	"Tag"
//	@Success		200		{object}	models.Tag
//	@Failure		400		{object}	errResponse	"Parent would create a cycle"
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/tags/{id} [put]
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.svc.UpdateTag(r.Context(), user(r), team(r), id(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/teams/{teamID}/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTag(r.Context(), user(r), team(r), id(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /api/teams/{teamID}/events.
//
//	@Summary		Server-Sent Events stream of the team's changes
//	@Tags			events
//	@Produce		text/event-stream
//	@Success		200
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/teams/{teamID}/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CheckMember(r.Context(), user(r), team(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.events.Serve(w, r, team(r))
}
