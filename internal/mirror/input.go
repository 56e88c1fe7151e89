package mirror

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// MenuItemInput is the admin form for adding or editing a menu item.
type MenuItemInput struct {
	Emoji     string `json:"emoji" validate:"required"`
	NameLocal string `json:"nameCh" validate:"required"`
	NameAlt   string `json:"nameEn" validate:"required"`
	Price     Number `json:"price" validate:"gt=0"`
	// MaxInventory of 0 falls back to 50.
	MaxInventory Number `json:"maxInventory"`
	// CanAddDrink defaults to true for new items and is left unchanged on
	// edit when nil.
	CanAddDrink *bool `json:"canAddDrink"`
}

// ExtraOptionInput is the admin form for an extra option.
type ExtraOptionInput struct {
	NameLocal string `json:"nameCh" validate:"required"`
	NameAlt   string `json:"nameEn" validate:"required"`
	Price     Number `json:"price" validate:"gt=0"`
}

// IdentityInput updates the site identity. Empty fields keep the current
// value.
type IdentityInput struct {
	Emoji     string `json:"emoji"`
	NameLocal string `json:"chinese"`
	NameAlt   string `json:"english"`
}

const defaultItemCap = 50

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and converts failures into a
// ValidationError keyed by wire field name.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate: %w", err)
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Field()] = describe(fe)
	}
	return ve
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// cleanText trims and NFC-normalizes user text.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (in MenuItemInput) cleaned() MenuItemInput {
	in.Emoji = cleanText(in.Emoji)
	in.NameLocal = cleanText(in.NameLocal)
	in.NameAlt = cleanText(in.NameAlt)
	return in
}

func (in ExtraOptionInput) cleaned() ExtraOptionInput {
	in.NameLocal = cleanText(in.NameLocal)
	in.NameAlt = cleanText(in.NameAlt)
	return in
}
