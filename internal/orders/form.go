package orders

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
)

// Form is the contact information collected at checkout.
type Form struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required,min=10"`
	Address string `json:"address" validate:"required"`
	Courier string `json:"courier" validate:"required"`
}

var formValidator = newFormValidator()

var formMessages = map[string]string{
	"name":    "Name is required",
	"phone":   "Phone number must be at least 10 characters",
	"address": "Address is required",
	"courier": "Courier name is required",
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
		Courier: strings.TrimSpace(f.Courier),
	}
}

// Validate checks the form and reports one message per invalid field.
func (f Form) Validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fieldErr := range errs {
		if msg, ok := formMessages[fieldErr.Field()]; ok {
			details[fieldErr.Field()] = msg
			continue
		}
		details[fieldErr.Field()] = "is invalid"
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}
