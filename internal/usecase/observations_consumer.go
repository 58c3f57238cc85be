package usecase

import (
	"context"
	"encoding/json"
	"time"

	"OptionWatch/internal/domain/models"
	domrepo "OptionWatch/internal/domain/repository"
	pkgkafka "OptionWatch/pkg/kafka"
)

// ObservationsHandler consumes observation messages from Kafka and persists
// them to storage. It runs only when the sink backend is "kafka" and a
// ClickHouse connection is configured.
type ObservationsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewObservationsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *ObservationsHandler {
	return &ObservationsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *ObservationsHandler) Topic() string { return h.topic }

func (h *ObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var o models.QuoteObservation
	if err := json.Unmarshal(b, &o); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if o.Timestamp > 1e11 { // ms
		o.Timestamp = o.Timestamp / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(o.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &o)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordObservation("clickhouse", o.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*ObservationsHandler)(nil)
