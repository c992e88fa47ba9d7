package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestWhatsAppSender_Send(t *testing.T) {
	var got whatsAppMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(config.WhatsAppConfig{
		APIURL:        srv.URL + "/v19.0/",
		PhoneNumberID: "12345",
		Token:         "secret",
	})

	err := s.Send(context.Background(), model.Contact{PhoneNo: "919800000000"}, model.Message{Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "919800000000", got.To)
	assert.Equal(t, "hello", got.Text.Body)
}

func TestWhatsAppSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender(config.WhatsAppConfig{APIURL: srv.URL, PhoneNumberID: "1"})

	err := s.Send(context.Background(), model.Contact{PhoneNo: "1"}, model.Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestSendersReachability(t *testing.T) {
	wa := NewWhatsAppSender(config.WhatsAppConfig{})
	em := NewEmailSender(nil)

	assert.True(t, wa.CanReach(model.Contact{PhoneNo: "1"}))
	assert.False(t, wa.CanReach(model.Contact{Email: "a@b.c"}))
	assert.True(t, em.CanReach(model.Contact{Email: "a@b.c"}))
	assert.False(t, em.CanReach(model.Contact{PhoneNo: "1"}))
}
