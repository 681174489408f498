package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/okravets/border-queue-server/internal/ingest"
	"github.com/okravets/border-queue-server/internal/queue"
	"github.com/okravets/border-queue-server/internal/store"
	"github.com/okravets/border-queue-server/pkg/config"
)

// Run by cron at the same cadence the upstream fetcher refreshes the
// snapshot. Any failure exits non-zero so the scheduler can alert.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Printf("=== Border Queue Ingestion Started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))

	db, err := store.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var publisher ingest.EventPublisher
	if cfg.Ingest.PublishEvents {
		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIngest)
		defer producer.Close()
		publisher = queue.NewEventProducer(producer)
		fmt.Println("Kafka event producer initialized")
	}

	source := ingest.FileSource{Path: cfg.Ingest.SnapshotPath}
	pipeline := ingest.NewPipeline(db, source, publisher, cfg.Ingest.MaxAge)

	report, err := pipeline.Run(context.Background())
	if err != nil {
		var perr *ingest.PersistenceError
		if errors.As(err, &perr) {
			log.Fatalf("Ingestion failed during %s: %v", perr.Op, perr.Err)
		}
		log.Fatalf("Aborting: %v", err)
	}

	fmt.Printf("Measurement timestamp: %s\n", report.MeasuredAt.Format(time.RFC3339))
	fmt.Printf("\n=== Ingestion Completed Successfully: run %s, %d checkpoints, %d measurements ===\n",
		report.RunID, report.CheckpointsUpserted, report.MeasurementsInserted)
}
