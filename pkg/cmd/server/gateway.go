package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/rohitksw/sw-alert-system/config"
	"github.com/rohitksw/sw-alert-system/pkg/api"
	"github.com/rohitksw/sw-alert-system/pkg/auth"
	"github.com/rohitksw/sw-alert-system/pkg/publish"
	"github.com/rohitksw/sw-alert-system/pkg/realtime"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
	"github.com/rohitksw/sw-alert-system/pkg/storage/memory"
	"github.com/rohitksw/sw-alert-system/pkg/storage/postgres"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type gatewayServer struct {
	c *config.Config

	quitCh chan bool
	doneCh chan bool

	nc      *nats.Conn
	monitor *realtime.Monitor
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func newGatewayServer(c *config.Config) (*gatewayServer, error) {
	s := &gatewayServer{
		c:      c,
		quitCh: make(chan bool),
		doneCh: make(chan bool),
	}

	nc, err := nats.Connect(c.NATSServerURL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error: ", err)
		}),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Warn("nats disconnected")
			syscall.Kill(syscall.Getpid(), syscall.SIGINT)
		}))
	if err != nil {
		return nil, err
	}

	s.nc = nc

	return s, nil
}

func (s *gatewayServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	store, err := newStore(s.c.DatabaseURL)
	if err != nil {
		log.Error("failed to create device directory: ", err)
		os.Exit(1)
	}

	// Wire the delivery core: registry, controller, fan-out bridge and
	// heartbeat monitor.
	registry := realtime.NewRegistry()
	ctrl := realtime.NewController(registry, store, s.c.CloseReplacedSessions)

	bridge := realtime.NewBridge(s.nc, registry, s.c.AlertsSubject)
	if err := bridge.Subscribe(); err != nil {
		log.Error("failed to subscribe to alert channel: ", err)
		os.Exit(1)
	}

	s.monitor = realtime.NewMonitor(registry, time.Duration(s.c.HeartbeatInterval)*time.Second)
	s.monitor.Start()

	// Register realtime endpoint
	verifier := auth.NewVerifier([]byte(s.c.AuthSecret))
	realtimeHandler := realtime.NewHandler(ctrl, verifier)
	realtimeHandler.RegisterRoutes(e)

	// Register API endpoints
	gateway := publish.NewGateway(s.nc, s.c.AlertsSubject)
	apiHandler := api.NewHandler(gateway, store)
	apiHandler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	// We've done!
	s.doneCh <- true
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}
			reqSizeStr := req.Header.Get(echo.HeaderContentLength)
			if reqSizeStr == "" {
				reqSizeStr = "0"
			}
			reqSize, err := strconv.ParseInt(reqSizeStr, 10, 0)
			if err != nil {
				reqSize = -1
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"timestamp":     stop.Format(time.RFC3339),
				"id":            id,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"referer":       req.Referer(),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}

func (s *gatewayServer) Shutdown() {
	if s.monitor != nil {
		s.monitor.Stop()
	}

	if s.nc != nil {
		s.nc.Drain()
	}

	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

// newStore selects the device directory backend: PostgreSQL when a
// database URL is configured, the in-memory store otherwise.
func newStore(databaseURL string) (storage.Interface, error) {
	if databaseURL == "" {
		log.Warn("no DATABASE_URL configured, using in-memory device directory")
		return memory.NewStore(), nil
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	return postgres.NewStore(db), nil
}

// RunServeGateway starts a realtime alert gateway instance.
func RunServeGateway(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newGatewayServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
