package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

// Consumer turns broker messages into patient notifications
type Consumer struct {
	notifier Notifier
	clinic   string
	log      *logger.Logger
}

func NewConsumer(notifier Notifier, clinic string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{notifier: notifier, clinic: clinic, log: log}
}

// Handle matches messaging.Handler. Unknown event types are ignored.
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	env, err := worker.DecodeEnvelope(data)
	if err != nil {
		return err
	}

	switch env.Type {
	case model.EventVisitRecorded:
		var payload model.VisitRecordedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
		return c.visitRecorded(ctx, env, payload)
	default:
		c.log.Debug("ignoring event", "event_id", env.ID.String(), "type", env.Type)
		return nil
	}
}

func (c *Consumer) visitRecorded(ctx context.Context, env *worker.Envelope, p model.VisitRecordedPayload) error {
	contact := model.Contact{Name: p.PatientName, PhoneNo: p.PhoneNo, Email: p.Email}
	result, err := c.notifier.Notify(ctx, contact, VisitRecordedMessage(c.clinic, p))
	if err != nil {
		if apperrors.Is(err, apperrors.KindDependency) {
			c.log.Warn(err, "visit notification not delivered",
				"event_id", env.ID.String(), "visit_id", p.VisitID.String())
			return nil
		}
		return err
	}

	channels := make([]string, len(result.Delivered))
	for i, ch := range result.Delivered {
		channels[i] = string(ch)
	}
	c.log.Info("visit notification delivered",
		"event_id", env.ID.String(), "visit_id", p.VisitID.String(), "channels", channels)
	return nil
}
