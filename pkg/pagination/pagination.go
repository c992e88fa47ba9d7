package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// Default returns the first page with the default size.
func Default() Params {
	return Params{Limit: DefaultLimit}
}

// FromContext extracts limit/offset query parameters. Missing or zero limits
// fall back to DefaultLimit and oversized ones are capped at MaxLimit.
func FromContext(c *gin.Context) (Params, error) {
	p := Default()

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return p, apperrors.Validation("invalid pagination",
				apperrors.FieldError{Field: "limit", Message: "must be a non-negative integer"})
		}
		if limit > 0 {
			p.Limit = limit
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return p, apperrors.Validation("invalid pagination",
				apperrors.FieldError{Field: "offset", Message: "must be a non-negative integer"})
		}
		p.Offset = offset
	}

	return p, nil
}

// Normalize applies the same defaults to params built outside a request.
func (p Params) Normalize() Params {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}
