package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/thiagomk/eventdesk/internal/blob"
	"github.com/thiagomk/eventdesk/internal/blob/s3store"
	"github.com/thiagomk/eventdesk/internal/config"
	"github.com/thiagomk/eventdesk/internal/gateway"
	"github.com/thiagomk/eventdesk/internal/mirror"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/observe"
	"github.com/thiagomk/eventdesk/internal/route/contacts"
	"github.com/thiagomk/eventdesk/internal/route/demands"
	"github.com/thiagomk/eventdesk/internal/route/events"
	"github.com/thiagomk/eventdesk/internal/route/notes"
	"github.com/thiagomk/eventdesk/internal/route/system"
	"github.com/thiagomk/eventdesk/internal/store"
	storemetrics "github.com/thiagomk/eventdesk/internal/store/metrics"
	"github.com/thiagomk/eventdesk/internal/store/postgres"
	"github.com/thiagomk/eventdesk/internal/watch"
)

// Server holds the running service and its subsystems.
type Server struct {
	Config *config.Config
	Store  store.Store
	Router *gin.Engine

	Events   *mirror.Engine[model.Event]
	Demands  *mirror.Engine[model.Demand]
	Notes    *mirror.Engine[model.Note]
	Contacts *mirror.Engine[model.CRMContact]

	// Port is the bound HTTP port. Differs from Config.Port when it was 0.
	Port int

	watcher      watch.Watcher
	dispatchDone chan struct{}
	httpServer   *http.Server
}

// StartServer initializes all subsystems: store, sync engines, push channel,
// gateways and the HTTP API. Use cfg.Port=0 for a random port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting eventdesk",
		"port", cfg.Port,
		"pushPolicy", cfg.PushPolicy,
		"pollInterval", cfg.PollInterval,
		"replication", cfg.ReplicationEnabled,
	)

	metricsLabels, err := observe.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	observe.InitMetrics(metricsLabels)

	if cfg.MigrateAtStart {
		if err := postgres.Migrate(ctx, cfg.DBURL); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	pg, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	st := storemetrics.Wrap(pg)

	ring := notify.NewRing(cfg.NotificationHistory)
	notifier := notify.Multi(notify.NewLog(), ring)

	engineOpts := func(collection string) mirror.Options {
		return mirror.Options{
			Collection:     collection,
			PushPolicy:     cfg.PushPolicy,
			DebounceWindow: cfg.DebounceWindow,
			PollInterval:   cfg.PollInterval,
		}
	}
	srv := &Server{
		Config:   cfg,
		Store:    st,
		Events:   mirror.Start(engineOpts(model.CollectionEvents), st.ListEvents, notifier),
		Demands:  mirror.Start(engineOpts(model.CollectionDemands), st.ListDemands, notifier),
		Notes:    mirror.Start(engineOpts(model.CollectionNotes), st.ListNotes, notifier),
		Contacts: mirror.Start(engineOpts(model.CollectionContacts), st.ListContacts, notifier),
	}
	syncers := map[string]mirror.Syncer{
		model.CollectionEvents:   srv.Events,
		model.CollectionDemands:  srv.Demands,
		model.CollectionNotes:    srv.Notes,
		model.CollectionContacts: srv.Contacts,
	}

	// Push channel. Startup failures degrade to poll-only operation rather
	// than aborting: the engines keep the mirrors fresh either way.
	if cfg.ReplicationEnabled {
		watcher, err := watch.StartReplication(ctx, cfg)
		if err != nil {
			log.Warn("Push channel unavailable, relying on poll fallback", "err", err)
		} else {
			srv.watcher = watcher
			srv.dispatchDone = make(chan struct{})
			go dispatchChanges(watcher, syncers, srv.dispatchDone)
		}
	}

	var logos blob.Store
	if cfg.S3Bucket != "" {
		s3, err := s3store.Load(ctx, cfg)
		if err != nil {
			log.Warn("Logo storage unavailable, uploads disabled", "err", err)
		} else {
			logos = s3
		}
	}

	refreshFor := func(s mirror.Syncer) gateway.RefreshFunc {
		return func() { s.Request(mirror.TriggerExplicit) }
	}
	eventsGW := gateway.NewEvents(st, logos, notifier, refreshFor(srv.Events), srv.Events.Snapshot)
	demandsGW := gateway.NewDemands(st, notifier, refreshFor(srv.Demands))
	notesGW := gateway.NewNotes(st, notifier, refreshFor(srv.Notes))
	contactsGW := gateway.NewContacts(st, notifier, refreshFor(srv.Contacts))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observe.AccessLogMiddleware("/health", "/ready", "/metrics"))
	router.Use(observe.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	events.MountRoutes(router, srv.Events, eventsGW)
	demands.MountRoutes(router, srv.Demands, demandsGW)
	notes.MountRoutes(router, srv.Notes, notesGW)
	contacts.MountRoutes(router, srv.Contacts, contactsGW)
	system.MountRoutes(router, []mirror.Syncer{srv.Events, srv.Demands, srv.Notes, srv.Contacts}, ring)

	srv.Router = router

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		srv.closeEngines()
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}
	srv.Port = ln.Addr().(*net.TCPAddr).Port
	srv.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		if err := srv.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()
	log.Info("HTTP server listening", "port", srv.Port)

	return srv, nil
}

// Shutdown stops the HTTP server, the sync engines, the push channel and the
// store, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		<-s.dispatchDone
	}
	s.closeEngines()
	if err := s.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Server) closeEngines() {
	s.Events.Close()
	s.Demands.Close()
	s.Notes.Close()
	s.Contacts.Close()
}

// dispatchChanges routes change notifications to the owning engine. Exits
// when the watcher's channel closes.
func dispatchChanges(w watch.Watcher, syncers map[string]mirror.Syncer, done chan struct{}) {
	defer close(done)
	for change := range w.Changes() {
		if s, ok := syncers[change.Collection]; ok {
			s.Request(mirror.TriggerPush)
		}
	}
}
