// Package intent renders the action descriptor that wallets and mini-app
// hosts fetch to present pending payments.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
)

// Action and parameter kinds.
const (
	ActionDynamic = "dynamic"

	ParamSelect  = "select"
	ParamText    = "text"
	ParamNumber  = "number"
	ParamAddress = "address"
)

const maxActions = 4

// Descriptor is the metadata document served on GET /api/gateway.
type Descriptor struct {
	URL         string   `json:"url" validate:"required,url"`
	Icon        string   `json:"icon" validate:"required,url"`
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"required"`
	BaseURL     string   `json:"baseUrl,omitempty" validate:"omitempty,url"`
	Actions     []Action `json:"actions" validate:"required,dive"`
}

type Action struct {
	Type        string  `json:"type" validate:"required,oneof=dynamic"`
	Label       string  `json:"label" validate:"required"`
	Description string  `json:"description,omitempty"`
	Chains      Chains  `json:"chains"`
	Path        string  `json:"path,omitempty"`
	Params      []Param `json:"params,omitempty" validate:"dive"`
}

type Chains struct {
	Source      string `json:"source" validate:"required"`
	Destination string `json:"destination,omitempty"`
}

type Param struct {
	Name        string   `json:"name" validate:"required"`
	Label       string   `json:"label" validate:"required"`
	Type        string   `json:"type" validate:"required,oneof=select text number address"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Options     []Option `json:"options,omitempty" validate:"dive"`
}

// MarshalJSON always emits options for select parameters, even when empty.
func (p Param) MarshalJSON() ([]byte, error) {
	type plain Param
	if p.Type != ParamSelect {
		return json.Marshal(plain(p))
	}

	opts := p.Options
	if opts == nil {
		opts = []Option{}
	}
	return json.Marshal(struct {
		plain
		Options []Option `json:"options"`
	}{plain(p), opts})
}

type Option struct {
	Label string `json:"label" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Validate checks d against the descriptor schema. Any violation is a
// MetadataValidationError.
func Validate(d *Descriptor) error {
	if d == nil {
		return types.NewError(types.ErrMetadataValidation, "missing descriptor", nil)
	}

	if err := utils.ValidateStruct(d); err != nil {
		return types.NewError(types.ErrMetadataValidation, "invalid descriptor", describe(err))
	}

	if len(d.Actions) == 0 || len(d.Actions) > maxActions {
		return types.NewError(types.ErrMetadataValidation,
			fmt.Sprintf("descriptor must have between 1 and %d actions, got %d", maxActions, len(d.Actions)), nil)
	}

	for i, a := range d.Actions {
		if err := validateAction(a); err != nil {
			return types.NewError(types.ErrMetadataValidation, fmt.Sprintf("action %d", i), err)
		}
	}
	return nil
}

func validateAction(a Action) error {
	if a.Type == ActionDynamic && !strings.HasPrefix(a.Path, "/") {
		return fmt.Errorf("dynamic action path %q must start with /", a.Path)
	}

	seen := make(map[string]struct{}, len(a.Params))
	for _, p := range a.Params {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		// An empty list is fine, a select without the field is not.
		if p.Type == ParamSelect && p.Options == nil {
			return fmt.Errorf("select parameter %q has no options", p.Name)
		}
		if p.Type != ParamSelect && len(p.Options) > 0 {
			return fmt.Errorf("parameter %q of type %s cannot have options", p.Name, p.Type)
		}
	}
	return nil
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
