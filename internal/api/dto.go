package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/facet"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
)

// CreateTeamRequest is the request body for creating a team.
type CreateTeamRequest struct {
	Name string `json:"name" example:"Home" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CreateTeamRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// AddMemberRequest is the request body for adding a team member.
type AddMemberRequest struct {
	UserID string      `json:"userId" example:"alice" validate:"required"`
	Role   models.Role `json:"role" example:"member" validate:"required"`
}

// Validate implements validation.Validatable.
func (r AddMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In(models.RoleMember, models.RoleAdmin)),
	)
}

// AssetTypeRequest is the request body for creating or replacing an asset type.
type AssetTypeRequest = assetservice.AssetTypeInput

// AssetRequest is the request body for creating or replacing an asset.
type AssetRequest = assetservice.AssetInput

// TagRequest is the request body for creating or replacing a tag.
type TagRequest = assetservice.TagInput

// SearchRequest is the request body of a raw search.
type SearchRequest = index.SearchRequest

// FilterRequest replaces the conditions of one session filter.
type FilterRequest struct {
	Conditions []facet.Condition `json:"conditions" validate:"required"`
}

// Validate implements validation.Validatable.
func (r FilterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Conditions, validation.NotNil),
	)
}

// SelectionRequest replaces the selected asset-type names of a session.
type SelectionRequest struct {
	AssetTypeNames []string `json:"assetTypeNames" validate:"required"`
}

// Validate implements validation.Validatable.
func (r SelectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AssetTypeNames, validation.NotNil,
			validation.Each(validation.Required)),
	)
}

// SessionSearchRequest pages a session search.
type SessionSearchRequest = assetservice.SessionSearchInput

// AssetDetail is the full asset response type (aliased from the domain layer).
type AssetDetail = assetservice.AssetDetail

// SessionView is a filter session response (aliased from the domain layer).
type SessionView = assetservice.SessionView

// SessionSearchResponse is a session search response (aliased from the domain layer).
type SessionSearchResponse = assetservice.SessionSearchResult

// SearchResponse is a raw search response (aliased from the index layer).
type SearchResponse = index.SearchResponse

// ReindexResponse reports a team reindex.
type ReindexResponse = index.SyncResult
