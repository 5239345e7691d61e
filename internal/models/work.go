// Package models defines the domain types for Pagecraft.
package models

import "time"

// Component is a visual element placed on a page.
type Component struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	LayerName string         `json:"layerName,omitempty"`
	IsHidden  bool           `json:"isHidden,omitempty"`
	IsLocked  bool           `json:"isLocked,omitempty"`
	Props     map[string]any `json:"props"`
}

// Page holds the page-level visual props, non-visual settings and
// publication metadata of the work being edited.
type Page struct {
	ID              string         `json:"id,omitempty"`
	Props           map[string]any `json:"props"`
	Setting         map[string]any `json:"setting"`
	Title           string         `json:"title,omitempty"`
	Desc            string         `json:"desc,omitempty"`
	CoverImg        string         `json:"coverImg,omitempty"`
	UUID            string         `json:"uuid,omitempty"`
	Author          string         `json:"author,omitempty"`
	IsTemplate      bool           `json:"isTemplate,omitempty"`
	LatestPublishAt time.Time      `json:"latestPublishAt,omitzero"`
	UpdatedAt       time.Time      `json:"updatedAt,omitzero"`
}

// WorkContent is the editable part of a persisted work.
type WorkContent struct {
	Components []Component    `json:"components"`
	Props      map[string]any `json:"props,omitempty"`
	Setting    map[string]any `json:"setting,omitempty"`
}

// Work is the persisted document for one page-builder work.
type Work struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Desc            string      `json:"desc,omitempty"`
	CoverImg        string      `json:"coverImg,omitempty"`
	UUID            string      `json:"uuid,omitempty"`
	Author          string      `json:"author,omitempty"`
	IsTemplate      bool        `json:"isTemplate,omitempty"`
	LatestPublishAt time.Time   `json:"latestPublishAt,omitzero"`
	UpdatedAt       time.Time   `json:"updatedAt,omitzero"`
	Content         WorkContent `json:"content"`
}

// WorkMetadata is a lightweight representation returned by list operations.
type WorkMetadata struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
