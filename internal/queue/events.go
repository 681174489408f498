package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// IngestEvent is the message published for every measurement a successful
// ingestion run wrote. It carries enough dimension fields for downstream
// consumers to build a latest-status entry without a database read.
type IngestEvent struct {
	RunID        string    `json:"run_id"`
	CheckpointID int64     `json:"checkpoint_id"`
	Title        string    `json:"title"`
	CountryID    int64     `json:"country_id"`
	Lng          float64   `json:"lng"`
	Lat          float64   `json:"lat"`
	MeasuredAt   time.Time `json:"measured_at"`
	IsPaused     bool      `json:"is_paused"`
	CancelAfter  *int64    `json:"cancel_after"`
	WaitTime     *float64  `json:"wait_time"`
}

// EncodeIngestEvent encodes an IngestEvent to JSON
func EncodeIngestEvent(event *IngestEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeIngestEvent decodes JSON to IngestEvent
func DecodeIngestEvent(data []byte) (*IngestEvent, error) {
	var event IngestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// EventProducer publishes ingest events, keyed by checkpoint id so all
// events for one checkpoint land on the same partition in order.
type EventProducer struct {
	producer *Producer
}

// NewEventProducer creates an event producer on top of a Kafka producer
func NewEventProducer(producer *Producer) *EventProducer {
	return &EventProducer{producer: producer}
}

// PublishIngest publishes all events of one ingestion run as a single batch
func (ep *EventProducer) PublishIngest(ctx context.Context, events []IngestEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for i := range events {
		value, err := EncodeIngestEvent(&events[i])
		if err != nil {
			return err
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(strconv.FormatInt(events[i].CheckpointID, 10)),
			Value: value,
		})
	}

	return ep.producer.PublishBatch(ctx, messages)
}
