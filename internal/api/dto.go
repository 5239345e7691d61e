package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/index"
	"github.com/starford/pagecraft/internal/models"
	"github.com/starford/pagecraft/internal/workservice"
)

// CreateWorkRequest is the request body for creating a work.
type CreateWorkRequest struct {
	Title string `json:"title" example:"Spring campaign"`
}

// Validate implements validation.Validatable.
func (r *CreateWorkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// WorkDetail is the persisted work response (aliased from the domain layer).
type WorkDetail = workservice.WorkDetail

// WorkListResponse wraps paginated work listings.
type WorkListResponse struct {
	Works []index.WorkRow `json:"works" validate:"required"`
	Total int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// AddComponentRequest is the request body for adding a component.
type AddComponentRequest struct {
	Name  string         `json:"name" example:"l-text"`
	Props map[string]any `json:"props"`
}

// Validate implements validation.Validatable.
func (r *AddComponentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

func (r *AddComponentRequest) component() models.Component {
	props := r.Props
	if props == nil {
		props = map[string]any{}
	}
	return models.Component{Name: r.Name, Props: props}
}

// UpdateComponentRequest writes either one key or a list of keys. With
// isProps false the key names a component attribute (layerName, isHidden,
// isLocked, name) instead of a prop; such writes are not recorded.
type UpdateComponentRequest struct {
	Key     string   `json:"key,omitempty" example:"top"`
	Value   any      `json:"value,omitempty"`
	Keys    []string `json:"keys,omitempty"`
	Values  []any    `json:"values,omitempty"`
	IsProps *bool    `json:"isProps,omitempty"`
}

// Validate implements validation.Validatable.
func (r *UpdateComponentRequest) Validate() error {
	list := len(r.Keys) > 0
	return validation.ValidateStruct(r,
		validation.Field(&r.Key,
			validation.Required.When(!list).Error("key or keys is required"),
			validation.When(list, validation.By(func(v any) error {
				if v.(string) != "" {
					return errors.New("key and keys are mutually exclusive")
				}
				return nil
			}))),
		validation.Field(&r.Values,
			validation.When(list, validation.Length(len(r.Keys), len(r.Keys)).Error("values must pair with keys"))),
		validation.Field(&r.IsProps,
			validation.By(func(any) error {
				if list && !r.props() {
					return errors.New("attributes take a single key")
				}
				return nil
			})),
	)
}

func (r *UpdateComponentRequest) props() bool {
	return r.IsProps == nil || *r.IsProps
}

func (r *UpdateComponentRequest) update() editor.Update {
	if len(r.Keys) > 0 {
		return editor.Props(r.Keys, r.Values)
	}
	return editor.Prop(r.Key, r.Value)
}

// SelectRequest selects the current element. An empty id clears the
// selection.
type SelectRequest struct {
	ID      string `json:"id" example:"4f1c..."`
	Editing bool   `json:"editing,omitempty"`
}

// Validate implements validation.Validatable.
func (r *SelectRequest) Validate() error {
	return nil
}

// MoveRequest moves the selected component.
type MoveRequest struct {
	Direction string `json:"direction" example:"Up"`
	Amount    int    `json:"amount" example:"1"`
}

// Validate implements validation.Validatable.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Direction, validation.Required, validation.By(func(v any) error {
			_, err := editor.ParseDirection(v.(string))
			return err
		})),
		validation.Field(&r.Amount, validation.Required, validation.Min(1), validation.Max(10000)),
	)
}

// PageUpdateRequest writes one page key at a level: "props" is recorded
// in history, "setting" and "" (title, desc, coverImg) are not.
type PageUpdateRequest struct {
	Level string `json:"level" example:"props"`
	Key   string `json:"key" example:"backgroundColor"`
	Value any    `json:"value"`
}

// Validate implements validation.Validatable.
func (r *PageUpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Level, validation.In(
			string(editor.LevelRoot), string(editor.LevelProps), string(editor.LevelSetting))),
		validation.Field(&r.Key, validation.Required),
	)
}

// EditorResponse is the live editor snapshot plus its ledger entries.
type EditorResponse struct {
	editor.State
	History []editor.Entry `json:"histories"`
	Pending int            `json:"pending"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"hero.png" validate:"required"`
	Size     int    `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/assets/hero.png" validate:"required"`
}
