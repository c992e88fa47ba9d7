package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/config"
	appointmenthandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	paymenthandler "github.com/jwalitptl/clinic-api/internal/handler/payment"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	visithandler "github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	authsvc "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/payment"
	"github.com/jwalitptl/clinic-api/internal/service/visit"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type server struct {
	engine     *gin.Engine
	adminToken string
	staffToken string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := repotest.NewStore()
	reg := promclient.NewRegistry()
	m := metrics.New("clinic", reg)

	auth := authsvc.NewService(store.Users(), jwtauth.NewJWTService(strings.Repeat("k", 32), "clinic-api", time.Hour),
		security.NewBcryptHasher(bcrypt.MinCost), authsvc.Options{}, m, nil)
	for _, u := range []model.CreateUserRequest{
		{Name: "Admin", Email: "admin@clinic.test", Password: "admin-password", Role: model.RoleAdmin},
		{Name: "Desk", Email: "desk@clinic.test", Password: "desk-password", Role: model.RoleStaff},
	} {
		_, err := auth.Register(ctx, &u)
		require.NoError(t, err)
	}

	notifier := notification.NewService(m, nil)
	handlers := Handlers{
		Auth:        authhandler.NewHandler(auth, false),
		Health:      health.NewHandler(map[string]health.Check{"database": func(context.Context) error { return nil }}),
		Metrics:     prometheus.New("clinic", reg),
		Patient:     patienthandler.NewHandler(patient.NewService(store.Patients(), nil)),
		Visit:       visithandler.NewHandler(visit.NewService(store.Visits(), store.Patients(), m, nil)),
		Payment:     paymenthandler.NewHandler(payment.NewService(store.Visits(), store.Patients(), m, nil)),
		Appointment: appointmenthandler.NewHandler(appointment.NewService(store.Patients(), notifier, "Lakeside Clinic", nil)),
	}
	cfg := Config{
		Server:    config.ServerConfig{MaxBodyBytes: 1 << 20, RequestTimeout: 10 * time.Second},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	s := &server{engine: NewRouter(cfg, middleware.NewAuthMiddleware(auth), handlers).Engine()}
	s.adminToken = s.login(t, "admin@clinic.test", "admin-password")
	s.staffToken = s.login(t, "desk@clinic.test", "desk-password")
	return s
}

func (s *server) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) login(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data model.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Token
}

func TestRoutes_RequireVerifiedIdentity(t *testing.T) {
	s := newServer(t)
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/auth/users"},
		{http.MethodPost, "/api/v1/patients"},
		{http.MethodGet, "/api/v1/patients"},
		{http.MethodGet, "/api/v1/patients/search"},
		{http.MethodGet, "/api/v1/patients/" + id},
		{http.MethodGet, "/api/v1/patients/reg/R-1"},
		{http.MethodPatch, "/api/v1/patients/" + id},
		{http.MethodPut, "/api/v1/patients/" + id + "/status"},
		{http.MethodDelete, "/api/v1/patients/" + id},
		{http.MethodPost, "/api/v1/patients/" + id + "/visits"},
		{http.MethodGet, "/api/v1/patients/" + id + "/visits"},
		{http.MethodGet, "/api/v1/patients/" + id + "/payments"},
		{http.MethodGet, "/api/v1/patients/" + id + "/payments/summary"},
		{http.MethodPost, "/api/v1/patients/" + id + "/reminders"},
		{http.MethodGet, "/api/v1/appointments/upcoming"},
		{http.MethodPut, "/api/v1/payments/" + id},
		{http.MethodPost, "/api/v1/payments/bulk"},
		{http.MethodGet, "/api/v1/payments/pending"},
		{http.MethodGet, "/api/v1/payments/overview"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := s.do(rt.method, rt.path, `{}`, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRoutes_MutationsRequireAdmin(t *testing.T) {
	s := newServer(t)
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/users"},
		{http.MethodPost, "/api/v1/patients"},
		{http.MethodPatch, "/api/v1/patients/" + id},
		{http.MethodPut, "/api/v1/patients/" + id + "/status"},
		{http.MethodDelete, "/api/v1/patients/" + id},
		{http.MethodPost, "/api/v1/patients/" + id + "/visits"},
		{http.MethodPost, "/api/v1/patients/" + id + "/reminders"},
		{http.MethodPut, "/api/v1/payments/" + id},
		{http.MethodPost, "/api/v1/payments/bulk"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := s.do(rt.method, rt.path, `{}`, s.staffToken)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRoutes_StaffCanRead(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{
		"/api/v1/patients",
		"/api/v1/appointments/upcoming",
		"/api/v1/payments/pending",
		"/api/v1/payments/overview",
		"/api/v1/auth/me",
	} {
		w := s.do(http.MethodGet, path, "", s.staffToken)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "no-store, private", w.Header().Get("Cache-Control"), path)
	}
}

func TestPatientLifecycle(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/patients", `{"reg_no":"R-1","name":"Asha","phone_no":"9800000000",`+
		`"address":"12 Lake Road","date_of_birth":"1990-01-02","doctor_name":"Dr. Rao","disease":"Migraine"}`, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data model.Patient `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID.String()

	next := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	w = s.do(http.MethodPost, "/api/v1/patients/"+id+"/visits",
		`{"treatment":"Physiotherapy","amount_paid":400,"next_appointment_date":"`+next+`"}`, s.adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/appointments/upcoming?days=5", "", s.staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = s.do(http.MethodGet, "/api/v1/patients/"+id+"/payments/summary", "", s.staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_paid":400`)

	w = s.do(http.MethodDelete, "/api/v1/patients/"+id, "", s.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/patients/"+id+"/reminders", "", s.adminToken)
	assert.Equal(t, http.StatusBadGateway, w.Code, "no senders are configured")
}

func TestPublicEndpoints(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w = s.do(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinic_login_attempts_total")

	w = s.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "desk@clinic.test", "desk-password")

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/logout", "", token).Code)

	w := s.do(http.MethodGet, "/api/v1/patients", "", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/patients", "", s.staffToken).Code)
}
