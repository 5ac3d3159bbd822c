// Package models defines the domain types for othala.
package models

import "time"

// AssetTypeNameKey is the document key carrying an asset's type name in
// the search index and in compiled filter expressions.
const AssetTypeNameKey = "assetTypeName"

// AssetType is a template node in the asset-type hierarchy. Fields holds only
// the fields declared directly on this node.
type AssetType struct {
	ID        string            `json:"id"`
	TeamID    string            `json:"teamId"`
	Name      string            `json:"name"`
	ParentID  *string           `json:"parentId,omitempty"`
	Fields    []FieldDefinition `json:"fields"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Asset is an item conforming to an asset type.
type Asset struct {
	ID          string       `json:"id"`
	TeamID      string       `json:"teamId"`
	AssetTypeID string       `json:"assetTypeId"`
	Name        string       `json:"name"`
	Values      []FieldValue `json:"values"`
	TagIDs      []string     `json:"tagIds"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// FieldValue is the value recorded for one custom field of an asset.
// TAG fields carry TagIDs; every other type carries Value in its canonical
// text form.
type FieldValue struct {
	FieldID string   `json:"fieldId"`
	Value   string   `json:"value,omitempty"`
	TagIDs  []string `json:"tagIds,omitempty"`
}

// Tag is a hierarchical label assignable to assets.
type Tag struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role is a team member's role.
type Role string

// Roles.
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Team is the tenant every other entity belongs to.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member links a user to a team.
type Member struct {
	TeamID string `json:"teamId"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
