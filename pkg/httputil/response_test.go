package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithError_MapsKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.Validation("bad", apperrors.FieldError{Field: "name", Message: "is required"}), http.StatusBadRequest, "validation_error"},
		{"not found", apperrors.NotFound("patient", nil), http.StatusNotFound, "not_found"},
		{"forbidden", apperrors.Forbidden("admin role required"), http.StatusForbidden, "forbidden"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRespondWithError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithError(c, apperrors.Internal(assert.AnError))

	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRespondWithPagination(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithPagination(c, []string{"a", "b"}, 2, 0, 5)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_more":true`)
	assert.Contains(t, w.Body.String(), `"total":5`)
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed", `{"name":`, ""},
		{"empty", ``, ""},
		{"wrong type", `{"age":"ten"}`, "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var p payload
			err := BindJSON(c, &p)

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
			if tt.field != "" {
				var appErr *apperrors.AppError
				require.True(t, apperrors.As(err, &appErr))
				require.Len(t, appErr.Fields, 1)
				assert.Equal(t, tt.field, appErr.Fields[0].Field)
			}
		})
	}
}

func TestUUIDParam(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	_, err := UUIDParam(c, "id")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	c.Params = gin.Params{{Key: "id", Value: "6f1c1c1e-8a51-4d4f-9a60-1b1f5c2b1a10"}}
	id, err := UUIDParam(c, "id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1c1e-8a51-4d4f-9a60-1b1f5c2b1a10", id.String())
}
