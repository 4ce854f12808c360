package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/fleetstats/api"
	"example.com/backstage/services/fleetstats/messaging"
	"example.com/backstage/services/fleetstats/metrics"
	"example.com/backstage/services/fleetstats/projections"
	"example.com/backstage/services/fleetstats/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aggregation pipeline and the read-side API",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting fleetstats service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the store and verify reachability
	st, err := store.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to store")
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure store indexes")
	}
	if _, err := st.ReadAggregate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Store reachability probe failed")
	}

	// Connect to the broker
	broker := messaging.NewClient(cfg)
	if err := broker.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to broker")
	}

	// Start the batch pipeline
	publisher := projections.NewStatisticsPublisher(broker, cfg.OutboundTopic)
	processor := projections.NewEventProcessor(st, publisher, cfg.BatchWindow(), cfg.StoreTimeout)
	processor.Start()

	// Subscribe to the inbound topic
	decoder := messaging.NewDecoder()
	err = broker.Subscribe(cfg.InboundTopic, func(payload []byte) {
		event, err := decoder.Decode(payload)
		if err != nil {
			metrics.RecordEventDropped()
			log.Warn().Err(err).Msg("Dropping undecodable message")
			return
		}
		metrics.RecordEventDecoded()
		processor.Enqueue(event)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to inbound topic")
	}

	// Start the read-side API server
	server := api.NewServer(cfg, st)
	g, _ := errgroup.WithContext(ctx)
	g.Go(server.Start)

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info().Msg("Shutting down fleetstats service...")

	// Stop accepting new broker messages
	if err := broker.Unsubscribe(cfg.InboundTopic); err != nil {
		log.Error().Err(err).Msg("Failed to unsubscribe from inbound topic")
	}

	// Flush the current window and wait for the in-flight batch
	processor.Stop()

	// Close broker and store
	broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server")
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("HTTP server exited with error")
	}

	log.Info().Msg("Fleetstats service exited properly")
}
