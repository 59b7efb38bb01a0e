package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/hilmishah-img/usms/internal/common/errors"
)

// CronParser accepts five or six field expressions and descriptors such as
// "@every 1h" or "@daily". The scheduler parses with the same rules.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CentralizedValidator wraps go-playground/validator with the service's
// custom tags
type CentralizedValidator struct {
	validator *validator.Validate
}

// FieldError describes a single failed rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// NewCentralizedValidator creates a validator with the custom tags registered
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()
	registerCacheValidators(v)

	// Report fields by their json name when one is set
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{validator: v}
}

// ValidateStruct validates a struct using its validate tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.toAppError(err)
	}
	return nil
}

// ValidateVar validates a single value against tag
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.toAppError(err)
	}
	return nil
}

// FieldErrors extracts the per-field failures from err, looking through
// wrapping AppErrors
func FieldErrors(err error) []FieldError {
	var out []FieldError

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Param:   fe.Param(),
			Message: formatFieldError(fe),
		})
	}
	return out
}

func (cv *CentralizedValidator) toAppError(err error) *errors.AppError {
	fieldErrs := FieldErrors(err)

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Message)
	}

	appErr := errors.ValidationError(strings.Join(messages, "; "))
	appErr.Cause = err
	if len(fieldErrs) > 0 {
		appErr.WithContext("field", fieldErrs[0].Field)
	}
	return appErr
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", fe.Field(), fe.Param())
	case "hostname_port":
		return fmt.Sprintf("field '%s' must be a host:port address", fe.Field())
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", fe.Field())
	case "cache_pattern":
		return fmt.Sprintf("field '%s' must be a key prefix optionally ending in '*'", fe.Field())
	case "excluded_with":
		return fmt.Sprintf("field '%s' cannot be combined with %s", fe.Field(), fe.Param())
	case "required_without":
		return fmt.Sprintf("field '%s' is required when %s is not set", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag())
	}
}

// registerCacheValidators registers the custom tags used by config and the admin API
func registerCacheValidators(v *validator.Validate) {
	v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		_, err := CronParser.Parse(fl.Field().String())
		return err == nil
	})

	// A pattern is a literal prefix with wildcards only at the end
	v.RegisterValidation("cache_pattern", func(fl validator.FieldLevel) bool {
		pattern := fl.Field().String()
		prefix := strings.TrimRight(pattern, "*")
		return prefix != "" && !strings.Contains(prefix, "*")
	})
}

var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a value using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}
