package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	clinicvalidator "github.com/jwalitptl/clinic-api/pkg/validator"
)

// BindJSON decodes the request body into dst and reports malformed input
// as a validation error
func BindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var (
		verrs     validator.ValidationErrors
		maxErr    *http.MaxBytesError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		return clinicvalidator.FromError(verrs).Err()
	case errors.As(err, &maxErr):
		return apperrors.Validation(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	case errors.As(err, &typeErr):
		return apperrors.Validation("invalid request body",
			apperrors.FieldError{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.Validation("request body must be valid JSON")
	default:
		return apperrors.Validation("invalid request body",
			apperrors.FieldError{Field: "body", Message: err.Error()})
	}
}

// UUIDParam parses the named path parameter as a UUID
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid "+name,
			apperrors.FieldError{Field: name, Message: "must be a valid UUID"})
	}
	return id, nil
}
