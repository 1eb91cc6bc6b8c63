package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/api"
	"github.com/luma/heosbridge/bridge"
	"github.com/luma/heosbridge/client"
	"github.com/luma/heosbridge/internal/env"
	"github.com/luma/heosbridge/relay"
	"github.com/luma/heosbridge/storage"
)

var (
	// The cluster member to connect to, overrides HEOS_HOST
	host string

	// The cluster port, overrides HEOS_PORT
	port int

	// The address to serve the HTTP API on, overrides HEOS_HTTP_ADDR
	httpAddr string
)

func init() {
	flags := ConnectCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "", "The cluster member to connect to")
	flags.IntVarP(&port, "port", "p", 0, "The port of the cluster member")
	flags.StringVar(&httpAddr, "http-addr", "", "The address to serve the HTTP API on")
}

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a HEOS cluster and serve the HTTP API",
	Long: `Connect to a HEOS cluster and serve the HTTP API

Usage
	heosbridge connect --host 192.168.1.21

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		log, err := env.MakeLogger(debug)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		if host != "" {
			conf.Host = host
		}

		if port != 0 {
			conf.Port = port
		}

		if httpAddr != "" {
			conf.HTTPAddr = httpAddr
		}

		if conf.Host == "" {
			return errors.New("no cluster host, set --host or HEOS_HOST")
		}

		store := storage.NewInmemoryStore()
		defer store.Close()

		conn := client.New(client.Options{
			Host:              conf.Host,
			Port:              conf.Port,
			HeartbeatInterval: conf.HeartbeatInterval,
			RetryInterval:     conf.RetryInterval,
			InitialDelay:      conf.InitialDelay,
			DialTimeout:       conf.DialTimeout,
			Log:               log.Named("client"),
		})

		b := bridge.New(conn, store, bridge.Options{
			Username:          conf.Username,
			Password:          conf.Password,
			HeartbeatInterval: conf.HeartbeatInterval,
			Log:               log,
		})

		var r *relay.Redis
		if conf.RedisAddr != "" {
			r = relay.NewRedis(relay.Options{
				Addr:     conf.RedisAddr,
				Password: conf.RedisPassword,
				DB:       conf.RedisDB,
				Prefix:   conf.RedisPrefix,
				Log:      log,
			})

			if err := r.Start(ctx); err != nil {
				return err
			}

			b.Registry().Register(r)
		}

		s := &http.Server{
			Addr: conf.HTTPAddr,
			Handler: api.NewRouter(api.Options{
				Store:     store,
				Commands:  conn,
				Status:    b.Status,
				DebugHTTP: conf.DebugHTTP,
				Log:       log,
			}),
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Connecting",
			zap.String("host", conf.Host),
			zap.Int("port", conf.Port),
			zap.String("httpAddr", conf.HTTPAddr),
			zap.Bool("relay", r != nil))

		// Blocks until the first connection, reconnects happen in the background
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Bridge failed to start", zap.Error(err))
		}

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		err = b.Close()

		if r != nil {
			b.Registry().Unregister(r)
			err = multierr.Append(err, r.Close())
		}

		if err != nil {
			log.Error("Failed to close cleanly", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}
