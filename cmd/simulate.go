package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/client"
	"github.com/luma/heosbridge/internal/env"
	"github.com/luma/heosbridge/storage"
	"github.com/luma/heosbridge/transport"
)

var (
	// The host the simulator listens on
	simulateHost string

	// The port the simulator listens on
	simulatePort int

	// A snapshot to seed the simulated cluster with
	fixture string

	// Log every command received
	trace bool
)

func init() {
	flags := SimulateCmd.PersistentFlags()

	flags.StringVarP(&simulateHost, "host", "a", "127.0.0.1", "The host to listen on")
	flags.IntVarP(&simulatePort, "port", "p", client.DefaultPort, "The port to listen for client connections on")
	flags.StringVarP(&fixture, "fixture", "f", "", "A JSON snapshot of players, groups and browse results")
	flags.BoolVar(&trace, "trace", false, "Log every command received")
}

var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated HEOS cluster",
	Long: `Run a simulated HEOS cluster

The simulator speaks the HEOS CLI protocol and is seeded with three players
unless a fixture is given. The format of a fixture is the one GET /state
returns.

Usage
	heosbridge simulate --port 1255 --fixture cluster.json

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		log, err := env.MakeLogger(debug)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		snapshot := transport.DefaultCluster
		if fixture != "" {
			if snapshot, err = os.ReadFile(fixture); err != nil {
				return err
			}
		}

		store := storage.NewInmemoryStore()
		defer store.Close()

		if err := store.Restore(snapshot); err != nil {
			return err
		}

		tcp := transport.NewTCP(transport.Options{
			Host:      simulateHost,
			Port:      simulatePort,
			Reuseport: true,
			Trace:     trace,
			Store:     store,
			Log:       log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Simulating",
			zap.String("addr", tcp.Addr()),
			zap.Int("players", len(store.Players())),
			zap.Int("groups", len(store.Groups())))

		// Listen for the interrupt signal.
		<-ctx.Done()

		signalStop()
		log.Info("Shutting down")

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}
