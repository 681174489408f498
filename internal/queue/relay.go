package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/okravets/border-queue-server/internal/store"
)

// StatusCache is the write side of the latest-status cache the relay feeds.
type StatusCache interface {
	Set(ctx context.Context, status store.LatestQueueStatus) error
}

// Relay consumes ingest events and keeps the latest-status cache warm so
// the API can serve /api/latest without touching the database.
type Relay struct {
	consumer *Consumer
	cache    StatusCache
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewRelay creates a new cache relay
func NewRelay(consumer *Consumer, cache StatusCache) *Relay {
	return &Relay{
		consumer: consumer,
		cache:    cache,
		stopCh:   make(chan struct{}),
	}
}

// Start begins consuming and updating the cache
func (r *Relay) Start(ctx context.Context) error {
	r.wg.Add(1)
	go r.run(ctx)
	return nil
}

// Stop stops the relay gracefully
func (r *Relay) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := r.consumer.Consume(ctx)
			if err != nil {
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			msgChan <- msg
		}
	}()

	for {
		select {
		case <-r.stopCh:
			return

		case msg := <-msgChan:
			if err := r.processMessage(ctx, msg); err != nil {
				fmt.Printf("Failed to process event: %v\n", err)
				continue
			}

			// Commit offset after successful processing
			if err := r.consumer.Commit(ctx, msg); err != nil {
				fmt.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}
}

func (r *Relay) processMessage(ctx context.Context, msg kafka.Message) error {
	event, err := DecodeIngestEvent(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	status := store.LatestQueueStatus{
		CheckpointID: event.CheckpointID,
		Title:        event.Title,
		CountryID:    event.CountryID,
		Lng:          event.Lng,
		Lat:          event.Lat,
		CreatedAt:    event.MeasuredAt,
		IsPaused:     event.IsPaused,
		CancelAfter:  event.CancelAfter,
		WaitTime:     event.WaitTime,
	}

	if err := r.cache.Set(ctx, status); err != nil {
		return fmt.Errorf("failed to cache status: %w", err)
	}

	return nil
}
