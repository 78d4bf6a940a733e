// Package server exposes the lab catalog over HTTP: spectators create live
// sessions, steer them with intents, and watch snapshot streams over
// websockets, while finished runs land in a sqlite archive.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/arvi-k/physlab/internal/notify"
)

// Options configures a server. Zero fields fall back to defaults.
type Options struct {
	Addr       string // listen address, default ":8080"
	DBPath     string // sqlite archive path, default "physlab.db"
	LogLevel   string // minimum log level, default "info"
	WebhookURL string // optional alert webhook, empty disables it
}

// Server wires the router, the spectator hub, the session manager, the alert
// dispatch, and the run archive together.
type Server struct {
	addr   string
	log    *Logger
	db     *sql.DB
	repo   *RunRepo
	hub    *Hub
	alerts *notify.Manager
	mgr    *Manager
	router *gin.Engine
}

// New builds a server and opens its archive database. Session alerts go to
// the process log and to spectators of the raising session; a webhook URL
// adds HTTP delivery on top.
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.DBPath == "" {
		opts.DBPath = "physlab.db"
	}

	logger := NewLogger(opts.LogLevel)

	db, err := InitSQLite(opts.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:   opts.Addr,
		log:    logger,
		db:     db,
		repo:   NewRunRepo(db),
		hub:    NewHub(logger),
		alerts: notify.NewManager(),
	}

	sinks := []notify.Notifier{
		notify.NewLogNotifier("log"),
		notify.NewHubNotifier("spectators", s.hub.Broadcast),
	}
	if opts.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier("webhook", opts.WebhookURL))
	}
	for _, n := range sinks {
		if err := s.alerts.Register(n); err != nil {
			db.Close()
			return nil, err
		}
	}

	s.mgr = NewManager(s.hub, s.repo, s.alerts, logger)
	s.router = s.setupRoutes()
	return s, nil
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until the context is canceled, then drains live sessions so
// their archives land before the database closes.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.Infof("listening on %s", s.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("shutting down")
	s.mgr.Shutdown()

	// Drain pending alerts after sessions archive, so run-completed
	// notifications still go out.
	if err := s.alerts.Close(); err != nil {
		s.log.Warnf("alert manager close: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.db.Close()
}

func (s *Server) setupRoutes() *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware())

	router.GET("/health", s.handleHealth())

	api := router.Group("/api")
	{
		api.GET("/labs", s.handleListLabs())

		sessions := api.Group("/sessions")
		{
			sessions.GET("", s.handleListSessions())
			sessions.POST("", s.handleCreateSession())
			sessions.GET("/:id", s.handleGetSession())
			sessions.POST("/:id/intents", s.handleQueueIntents())
			sessions.DELETE("/:id", s.handleDeleteSession())
		}

		runs := api.Group("/runs")
		{
			runs.GET("", s.handleListRuns())
			runs.GET("/:id", s.handleGetRun())
		}
	}

	router.GET("/ws/:id", s.handleSpectate())

	return router
}

// corsMiddleware allows browser frontends on other origins to reach the API.
// The server carries no credentials, so open origins are fine.
func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowAllOrigins: true,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Accept",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	return cors.New(corsConfig)
}
