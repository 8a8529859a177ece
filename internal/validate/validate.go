package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(useJSONTagNames)

	// Amounts compared as numbers by min/max/gte/lte
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	_ = v.RegisterValidation("stellar_pubkey", validateStellarPublicKey)

	return v
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

func validateStellarPublicKey(fl validator.FieldLevel) bool {
	return StellarPublicKey(fl.Field().String()) == nil
}

// Error lists invalid fields with user-friendly messages
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}

	return apperrors.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return apperrors.ErrValidation
}

// Struct validates value using struct tags
// Returns *Error (which is apperrors.ErrValidation) listing failed fields
func Struct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	verr := &Error{Fields: make(map[string]string, len(errs))}
	for _, fieldError := range errs {
		verr.Fields[fieldError.Field()] = message(fieldError)
	}

	return verr
}

// Create user-friendly error messages based on validation tag
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
		}
		return fmt.Sprintf("Value is too small (minimum %s)", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Value is too long (maximum %s)", fe.Param())
		}
		return fmt.Sprintf("Value is too large (maximum %s)", fe.Param())
	case "len":
		return fmt.Sprintf("Value must be exactly %s characters long", fe.Param())
	case "email":
		return "Invalid email address"
	case "eqfield":
		return "Values do not match"
	case "stellar_pubkey":
		return "Invalid Stellar public key"
	default:
		return "Invalid value"
	}
}
