package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"winetour-api/core/controller"
	"winetour-api/core/errors"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate satisfies echo.Validator. Failures come back as an AppError with per-field details.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewAppError(errors.ErrInvalidRequestData, err.Error(), err)
	}

	details := make([]controller.ValidationError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := describe(fe)
		details = append(details, controller.NewValidationError(fe.Field(), msg))
		msgs = append(msgs, fe.Field()+": "+msg)
	}
	return &ValidationErrors{
		AppError: errors.NewAppError(errors.ErrInvalidRequestData, strings.Join(msgs, "; "), err),
		Fields:   details,
	}
}

// ValidationErrors keeps the field list next to the AppError so controllers can return it.
type ValidationErrors struct {
	*errors.AppError
	Fields []controller.ValidationError
}

func (e *ValidationErrors) Unwrap() error {
	return e.AppError
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "timezone":
		return "must be an IANA time zone"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
