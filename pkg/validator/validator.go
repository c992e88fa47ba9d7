package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Result is the outcome of validating one value
type Result struct {
	Valid  bool
	Errors []apperrors.FieldError
}

// Err converts an invalid result into a validation AppError, nil otherwise
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperrors.Validation("invalid request", r.Errors...)
}

// Add records a field error
func (r *Result) Add(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, apperrors.FieldError{Field: field, Message: message})
}

// Merge folds other into r
func (r *Result) Merge(other Result) {
	if !other.Valid {
		r.Valid = false
		r.Errors = append(r.Errors, other.Errors...)
	}
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Engine returns the shared validator with the clinic rules registered
func Engine() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		Register(instance)
	})
	return instance
}

// Register installs the json tag name function and custom rules on v.
// It is also applied to gin's binding engine so request structs share rules.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("regno", validateRegNo)
	_ = v.RegisterValidation("date", validateDate)
}

// Struct validates s and collects every failed rule
func Struct(s any) Result {
	return FromError(Engine().Struct(s))
}

// Var validates a single value against a tag
func Var(field string, value any, tag string) Result {
	err := Engine().Var(value, tag)
	if err == nil {
		return Result{Valid: true}
	}
	res := FromError(err)
	for i := range res.Errors {
		res.Errors[i].Field = field
	}
	return res
}

// FromError converts validator errors into a Result
func FromError(err error) Result {
	if err == nil {
		return Result{Valid: true}
	}

	res := Result{Valid: true}
	var verrs validator.ValidationErrors
	if !apperrors.As(err, &verrs) {
		res.Add("", err.Error())
		return res
	}
	for _, fe := range verrs {
		res.Add(fieldPath(fe), message(fe))
	}
	return res
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "regno":
		return "may only contain letters, digits, '-', '/' and '_'"
	case "date":
		return "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validateRegNo(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '/', r == '_':
		default:
			return false
		}
	}
	return true
}

// DateLayouts are the accepted input formats for date fields
var DateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses s with the first matching layout of DateLayouts
func ParseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range DateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}
