package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// Report JSON field names so the UI can highlight inputs
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	validate.RegisterValidation("discount_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "percentage", "fixed":
			return true
		}
		return false
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = fieldPath(err.Namespace())
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Fields validates data and returns field -> message, or nil when valid.
func Fields(data interface{}) map[string]string {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, seen := fields[e.FailedField]; !seen {
			fields[e.FailedField] = message(e)
		}
	}
	return fields
}

// fieldPath drops the root struct name: "OrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(e *ErrorResponse) string {
	switch e.Tag {
	case "required", "uuid_required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Value)
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Value)
	case "min":
		return fmt.Sprintf("must have at least %s", e.Value)
	case "max":
		return fmt.Sprintf("must have at most %s", e.Value)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Value)
	case "discount_type":
		return "must be percentage or fixed"
	case "datetime":
		return fmt.Sprintf("must be a date in the format %s", e.Value)
	default:
		return fmt.Sprintf("failed on '%s'", e.Tag)
	}
}
