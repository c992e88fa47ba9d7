package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Sender delivers a message to a patient over one channel
type Sender interface {
	Channel() model.NotificationChannel
	// CanReach reports whether the contact has an address for this channel
	CanReach(contact model.Contact) bool
	Send(ctx context.Context, contact model.Contact, msg model.Message) error
}

// WhatsAppSender posts text messages to the WhatsApp Cloud API
type WhatsAppSender struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewWhatsAppSender(cfg config.WhatsAppConfig) *WhatsAppSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppSender{
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.Token,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *WhatsAppSender) Channel() model.NotificationChannel { return model.ChannelWhatsApp }

func (s *WhatsAppSender) CanReach(contact model.Contact) bool { return contact.PhoneNo != "" }

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

func (s *WhatsAppSender) Send(ctx context.Context, contact model.Contact, msg model.Message) error {
	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               contact.PhoneNo,
		Type:             "text",
		Text:             whatsAppText{Body: msg.Body},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// EmailSender adapts an email.Service to the Sender interface
type EmailSender struct {
	mail email.Service
}

func NewEmailSender(mail email.Service) *EmailSender {
	return &EmailSender{mail: mail}
}

func (s *EmailSender) Channel() model.NotificationChannel { return model.ChannelEmail }

func (s *EmailSender) CanReach(contact model.Contact) bool { return contact.Email != "" }

func (s *EmailSender) Send(ctx context.Context, contact model.Contact, msg model.Message) error {
	return s.mail.Send(ctx, contact.Email, msg.Subject, msg.Body)
}
