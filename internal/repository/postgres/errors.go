package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"

	// numeric overflow, invalid datetime and the like
	classDataException = "22"
)

// translate maps driver errors onto the application taxonomy
func translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return apperrors.Conflict(conflictMessage(resource, pqErr), err)
		case codeForeignKeyViolation:
			return apperrors.Conflict(resource+" is referenced by other records", err)
		case codeCheckViolation:
			return invalidData(resource, err)
		}
		if pqErr.Code.Class() == classDataException {
			return invalidData(resource, err)
		}
	}
	return apperrors.Dependency("database", err)
}

func invalidData(resource string, err error) error {
	appErr := apperrors.Validation(resource + " has a value the database cannot store")
	appErr.Err = err
	return appErr
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

func conflictMessage(resource string, pqErr *pq.Error) string {
	switch {
	case strings.Contains(pqErr.Constraint, "reg_no"):
		return "a patient with this registration number already exists"
	case strings.Contains(pqErr.Constraint, "email"):
		return "a " + resource + " with this email already exists"
	}
	return resource + " already exists"
}

// escapeLike makes s safe to use as a literal LIKE prefix with ESCAPE '\'
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
