package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/paddock/client"
	"github.com/luma/paddock/internal/env"
	"github.com/luma/paddock/internal/meta"
	"github.com/luma/paddock/metrics"
	"github.com/luma/paddock/protocol"
	"github.com/luma/paddock/storage"
	"github.com/luma/paddock/transport"
)

var (
	// The simulator host to connect to
	host string

	// The simulator's broadcasting port
	port int

	// The local address to bind the UDP socket to
	localAddr string

	// Set SO_REUSEPORT on the local socket
	reuse bool

	// Dump datagrams to the debug log
	trace bool

	// The port to serve the live state over http, empty disables it
	httpPort string
)

func init() {
	flags := ConnectCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "127.0.0.1", "The simulator host to connect to")
	flags.IntVarP(&port, "port", "p", 9000, "The simulator's broadcasting port")
	flags.StringVar(&localAddr, "local-addr", "", "The local address to bind, defaults to an ephemeral port")
	flags.BoolVar(&reuse, "reuseport", false, "Set SO_REUSEPORT on the local socket")
	flags.BoolVar(&trace, "trace", false, "Dump every datagram to the debug log")
	flags.StringVar(&httpPort, "http-port", "", "The port to serve the live state on, disabled when empty")
}

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a simulator and follow its broadcast",
	Long: `Connect to a simulator and follow its broadcast

Registers with the simulator's broadcasting interface, logs connection
changes and broadcasting events, and keeps the latest session, track, entry
and car state in memory. With --http-port the state is served as JSON
under /state and Prometheus metrics under /metrics.

Usage
	paddock connect --host 192.168.1.20 --port 9000

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		log.Info("Starting", zap.Any("build", meta.GetInfo()))

		store := storage.NewInmemoryStore(log.Named("store"))
		defer store.Close()

		go func() {
			for update := range store.ListenToUpdates() {
				log.Debug("Live state updated", zap.ByteString("path", update.Key))
			}
		}()

		conn := client.New(client.Options{
			ReadTimeout: conf.ReadTimeout,
			Transport: transport.Options{
				LocalAddr: localAddr,
				Reuseport: reuse,
				Trace:     trace,
			},
			Log: log.Named("client"),
		})

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())

		storage.Record(conn, store, log.Named("recorder"))
		metrics.Observe(conn, metrics.Options{Registry: registry})
		logEvents(conn, log)

		if httpPort != "" {
			s := startHTTP(store, registry, conf.DebugHTTP, log)

			defer func() {
				// The context is used to inform the server it has 5 seconds to finish
				// the request it is currently handling
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				s.SetKeepAlivesEnabled(false)
				if err := s.Shutdown(shutdownCtx); err != nil {
					log.Error("Http server forced to shutdown", zap.Error(err))
				}
			}()
		}

		err = conn.Start(ctx, client.Registration{
			Host:            host,
			Port:            port,
			Password:        conf.Password,
			CommandPassword: conf.CommandPassword,
			DisplayName:     conf.DisplayName,
			UpdateInterval:  conf.UpdateInterval,
		})
		if err != nil {
			return err
		}

		// Wait for an interrupt, or for the session to end by itself
		select {
		case <-ctx.Done():
			signalStop()
			log.Info("Shutting down gracefully, press Ctrl+C again to force")

		case <-conn.Done():
		}

		sessionErr := conn.Err()

		if err := multierr.Combine(conn.Stop(), store.Close()); err != nil {
			log.Error("Failed to stop cleanly", zap.Error(err))
		}

		log.Info("Exiting", zap.Stringer("state", conn.State()))

		if errors.Is(sessionErr, client.ErrRejected) || errors.Is(sessionErr, client.ErrConnectionLost) {
			return sessionErr
		}

		return nil
	},
}

func logEvents(conn *client.Conn, log *zap.Logger) {
	conn.OnConnectionStateChange().Subscribe(func(state client.ConnectionState) {
		log.Info("Connection", zap.Stringer("state", state))
	})

	conn.OnTrackDataUpdate().Subscribe(func(t *protocol.TrackData) {
		log.Info("Track",
			zap.String("name", t.TrackName),
			zap.Int32("meters", t.TrackMeters),
			zap.Int("cameraSets", len(t.CameraSets)),
			zap.Strings("hudPages", t.HUDPages))
	})

	conn.OnEntryListCarUpdate().Subscribe(func(c *protocol.EntryListCar) {
		log.Debug("Entry",
			zap.Uint16("carIndex", c.CarIndex),
			zap.Int32("raceNumber", c.RaceNumber),
			zap.String("team", c.TeamName),
			zap.Int("drivers", len(c.Drivers)))
	})

	conn.OnBroadcastingEvent().Subscribe(func(e *protocol.BroadcastingEvent) {
		log.Info("Event",
			zap.Stringer("type", e.Type),
			zap.String("message", e.Message),
			zap.Int32("carIndex", e.CarIndex))
	})
}

func startHTTP(store storage.Store, gatherer prometheus.Gatherer, debugHTTP bool, log *zap.Logger) *http.Server {
	router := setupRouter(debugHTTP, log)

	// Ping test
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.GET("/state", func(c *gin.Context) {
		value, err := store.Backup()
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}

		c.Data(http.StatusOK, "application/json", value)
	})

	router.GET("/state/*path", func(c *gin.Context) {
		path := strings.ReplaceAll(strings.Trim(c.Param("path"), "/"), "/", ".")

		value, err := store.Get(c.Request.Context(), []byte(path))
		if errors.Is(err, storage.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}

		c.Data(http.StatusOK, "application/json", value)
	})

	s := &http.Server{
		Addr:    net.JoinHostPort("", httpPort),
		Handler: router,
	}

	// Initializing the server in a goroutine so that
	// it won't block the session handling below
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Http server errored", zap.Error(err))
		}
	}()

	log.Info("Serving live state", zap.String("httpPort", httpPort))

	return s
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
