package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OptionWatch/internal/domain/models"
	"OptionWatch/internal/domain/repository"
	pkgkafka "OptionWatch/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	if table == "" {
		table = "quote_observations"
	}
	return &ClickHouseStorage{db: db, table: table}
}

// Init ensures the observation table exists.
func (s *ClickHouseStorage) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		symbol String,
		contract_id String,
		bid Float64,
		ask Float64,
		mid Float64,
		spread Float64,
		underlying Float64
	) ENGINE = MergeTree ORDER BY (symbol, contract_id, ts)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, o *models.QuoteObservation) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, contract_id, bid, ask, mid, spread, underlying) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(o.Timestamp, 0),
		o.Symbol,
		o.ContractID,
		o.Bid,
		o.Ask,
		o.Mid,
		o.Spread,
		o.Underlying,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, obs []*models.QuoteObservation) error {
	if len(obs) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, o := range obs[start:end] {
			if o == nil || o.ContractID == "" || o.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(o.Timestamp, 0),
				o.Symbol,
				o.ContractID,
				o.Bid,
				o.Ask,
				o.Mid,
				o.Spread,
				o.Underlying,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, contract_id, bid, ask, mid, spread, underlying) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, symbol, contractID string, from, to time.Time, limit int) ([]*models.QuoteObservation, error) {
	q := fmt.Sprintf("SELECT ts, symbol, contract_id, bid, ask, mid, spread, underlying FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ?", s.table)
	args := []interface{}{symbol, from, to}
	if contractID != "" {
		q += " AND contract_id = ?"
		args = append(args, contractID)
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.QuoteObservation
	for rows.Next() {
		var o models.QuoteObservation
		var ts time.Time
		if err := rows.Scan(&ts, &o.Symbol, &o.ContractID, &o.Bid, &o.Ask, &o.Mid, &o.Spread, &o.Underlying); err != nil {
			return nil, err
		}
		o.Timestamp = ts.Unix()
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, o *models.QuoteObservation) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.ContractID), o)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, obs []*models.QuoteObservation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(o.ContractID),
			Value: o,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
