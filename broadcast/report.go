package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/promoimperio/broadcast_backend/appctx"
	"github.com/promoimperio/broadcast_backend/config"
	"github.com/sirupsen/logrus"
)

// SlotReport is the outcome event published after every slot run when a
// report topic is configured. Consumers get the same per-destination detail
// the log line carries.
type SlotReport struct {
	RunId      string               `json:"run_id"`
	SlotIndex  int                  `json:"slot_index"`
	SlotTime   string               `json:"slot_time"`
	Product    string               `json:"product"`
	Key        string               `json:"key"`
	State      State                `json:"state"`
	Outcomes   []DestinationOutcome `json:"outcomes,omitempty"`
	ReportedAt time.Time            `json:"reported_at"`
}

// PublishSlotReport is fire-and-forget: report delivery problems are logged,
// never surfaced to the dispatch path.
func PublishSlotReport(ctx context.Context, logger *logrus.Logger, index int, outcome SlotOutcome) {
	topic := config.ReportTopic()
	if topic == "" {
		return
	}

	runId, ok := appctx.GetString(ctx, appctx.ContextKeyRunId)
	if !ok || runId == "" {
		runId = uuid.NewString()
	}

	report := SlotReport{
		RunId:      runId,
		SlotIndex:  index,
		SlotTime:   outcome.SlotTime,
		Product:    outcome.Product,
		Key:        outcome.Key,
		State:      outcome.State,
		Outcomes:   outcome.Outcomes,
		ReportedAt: time.Now().UTC(),
	}

	if _, err := config.PublishReport(ctx, topic, report); err != nil {
		logger.WithFields(logrus.Fields{
			"module": "broadcast",
			"topic":  topic,
			"key":    outcome.Key,
		}).Warn("failed to publish slot report: " + err.Error())
	}
}
