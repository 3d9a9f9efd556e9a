package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/domain"
)

// VitalRecorded is the payload published by the vitals tracker whenever
// a user logs a wellness measurement.
type VitalRecorded struct {
	UserID     string    `json:"user_id"`
	TenantID   string    `json:"tenant_id"`
	Metric     string    `json:"metric"`
	Value      int       `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ProgressHandler advances challenge progress from vital events.
type ProgressHandler struct {
	service *domain.Service
}

// NewProgressHandler constructs a handler backed by the provided service.
func NewProgressHandler(service *domain.Service) Handler {
	return &ProgressHandler{service: service}
}

// Handle applies vital.recorded events to the user's active challenges.
// Events for users without a profile are skipped; the profile is created
// on first login, not by the vitals stream.
func (h *ProgressHandler) Handle(ctx context.Context, msg Message) error {
	if eventType, ok := msg.Headers["event_type"]; ok && eventType != "wellness.vital_recorded" {
		return nil
	}

	var evt VitalRecorded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("decode vital event: %w", err)
	}

	if strings.TrimSpace(evt.UserID) == "" || strings.TrimSpace(evt.TenantID) == "" {
		return fmt.Errorf("vital event missing user_id or tenant_id")
	}
	if evt.Value <= 0 {
		return nil
	}

	recordedAt := evt.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = msg.Timestamp
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := h.service.AdvanceChallenges(ctx, evt.TenantID, evt.UserID, evt.Metric, evt.Value, recordedAt)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil
		}
		return err
	}

	RecordProcessed(msg)
	return nil
}
