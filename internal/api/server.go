package api

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/api/ratelimit"
	"github.com/paneldeck/paneldeck/internal/auth"
	"github.com/paneldeck/paneldeck/internal/command"
	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/database"
	"github.com/paneldeck/paneldeck/internal/dialog"
	"github.com/paneldeck/paneldeck/internal/health"
	"github.com/paneldeck/paneldeck/internal/history"
	"github.com/paneldeck/paneldeck/internal/layout"
	"github.com/paneldeck/paneldeck/internal/logger"
	"github.com/paneldeck/paneldeck/internal/notify"
	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/progress"
	"github.com/paneldeck/paneldeck/internal/scheduler"
	"github.com/paneldeck/paneldeck/internal/scheduler/tasks"
	"github.com/paneldeck/paneldeck/internal/storage"
	"github.com/paneldeck/paneldeck/internal/transfer"
	"github.com/paneldeck/paneldeck/internal/watcher"
	"github.com/paneldeck/paneldeck/internal/websocket"
)

// Server wires the panel services together and handles HTTP requests.
type Server struct {
	echo      *echo.Echo
	db        *database.DB
	hub       *websocket.Hub
	cfg       *config.Config
	log       *logger.Logger
	logger    zerolog.Logger
	startTime time.Time
	homePath  string

	backend        storage.Backend
	store          *panel.Store
	panelService   *panel.Service
	center         *notify.Center
	tracker        *progress.Tracker
	dialogs        *dialog.Broker
	historyService *history.Service
	authService    *auth.Service
	healthService  *health.Service
	coordinator    *transfer.Coordinator
	layoutService  *layout.Service
	dispatcher     *command.Dispatcher
	watcherService *watcher.Service
	scheduler      *scheduler.Scheduler
	authLimiter    *ratelimit.AuthLimiter
}

// NewServer builds the full service graph and mounts the routes.
// The watcher is optional; everything else failing to construct is
// fatal.
func NewServer(db *database.DB, hub *websocket.Hub, cfg *config.Config, log *logger.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		db:          db,
		hub:         hub,
		cfg:         cfg,
		log:         log,
		logger:      log.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
		authLimiter: ratelimit.NewAuthLimiter(),
	}

	s.homePath = cfg.Panels.Home
	if s.homePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/"
		}
		s.homePath = home
	}

	base := log.Logger

	s.backend = storage.NewLocal(cfg.Panels.ShowHidden, base)

	s.store = panel.NewStore(panel.Defaults{
		HomePath:  s.homePath,
		ViewMode:  panel.ViewMode(cfg.Panels.ViewMode),
		SortBy:    panel.SortKey(cfg.Panels.SortBy),
		SortOrder: panel.SortOrder(cfg.Panels.SortOrder),
	}, hub, base)
	s.panelService = panel.NewService(s.store, s.backend, base)

	s.center = notify.NewCenter(hub, base)
	s.tracker = progress.NewTracker(hub, base)

	s.dialogs = dialog.NewBroker(hub, base)
	hub.SetDialogAnswerHandler(func(p websocket.DialogAnswerPayload) {
		s.dialogs.Deliver(p.ID, dialog.Answer{OK: p.OK, Value: p.Value, Confirmed: p.Confirmed})
	})
	hub.SetSnapshotProvider(func() (string, interface{}) {
		return "state:snapshot", s.store.Snapshot()
	})

	s.historyService = history.NewService(db.Conn(), base)

	authService, err := auth.NewService(db.Conn(), auth.Config{
		Enabled:    cfg.Auth.Enabled,
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenHours: cfg.Auth.TokenHours,
	}, base)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	s.authService = authService

	s.coordinator = transfer.NewCoordinator(transfer.Config{
		Panels:    s.panelService,
		Backend:   s.backend,
		Progress:  s.tracker,
		Notifier:  s.center,
		Recorder:  s.historyService,
		Collision: transfer.CollisionPolicy(cfg.Transfer.Collision),
	}, base)

	layoutService, err := layout.NewService(cfg.Panels.LayoutsFile, base)
	if err != nil {
		return nil, fmt.Errorf("init layout presets: %w", err)
	}
	s.layoutService = layoutService

	s.dispatcher = command.NewDispatcher(command.NewRegistry(command.Table()), &command.Deps{
		Panels:    s.panelService,
		Backend:   s.backend,
		Transfers: s.coordinator,
		Dialogs:   s.dialogs,
		Notifier:  s.center,
		Clipboard: systemClipboard{},
		Layouts:   s.layoutService,
		HomePath:  s.homePath,
	}, base)

	if cfg.Watcher.Enabled {
		watcherService, err := watcher.NewService(cfg.Watcher, s.panelService, hub, base)
		if err != nil {
			s.logger.Warn().Err(err).Msg("filesystem watcher unavailable")
		} else {
			s.watcherService = watcherService
			s.panelService.SetPathListener(watcherService.RequestReconcile)
		}
	}

	sched, err := scheduler.New(base)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	s.scheduler = sched
	if err := tasks.RegisterHistoryPruneTask(sched, s.historyService, cfg.History); err != nil {
		return nil, fmt.Errorf("register history prune task: %w", err)
	}
	if err := tasks.RegisterWatchReconcileTask(sched, s.watcherService); err != nil {
		return nil, fmt.Errorf("register watch reconcile task: %w", err)
	}

	s.healthService = health.NewService(base)
	s.registerHealthChecks()

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) registerHealthChecks() {
	s.healthService.Register(health.Check{
		ID:   "database",
		Name: "Database",
		Run: func(ctx context.Context) (health.Status, string) {
			if err := s.db.Conn().PingContext(ctx); err != nil {
				return health.StatusError, err.Error()
			}
			return health.StatusOK, ""
		},
	})

	s.healthService.Register(health.Check{
		ID:   "home",
		Name: "Home directory",
		Run: func(ctx context.Context) (health.Status, string) {
			return health.CheckDir(s.homePath)
		},
	})

	s.healthService.Register(health.Check{
		ID:   "panel-paths",
		Name: "Panel directories",
		Run: func(ctx context.Context) (health.Status, string) {
			var unreachable []string
			for _, id := range s.store.Order() {
				view, ok := s.store.Panel(id)
				if !ok || view.CurrentPath == "" {
					continue
				}
				if err := health.DirAccessible(view.CurrentPath); err != nil {
					unreachable = append(unreachable, view.CurrentPath)
				}
			}
			if len(unreachable) > 0 {
				return health.StatusWarning, "unreachable: " + strings.Join(unreachable, ", ")
			}
			return health.StatusOK, ""
		},
	})

	if s.cfg.Watcher.Enabled {
		s.healthService.Register(health.Check{
			ID:   "watcher",
			Name: "Filesystem watcher",
			Run: func(ctx context.Context) (health.Status, string) {
				if s.watcherService == nil {
					return health.StatusError, "watcher failed to initialize"
				}
				return health.StatusOK, ""
			},
		})
	}
}

// EnsureDefaults applies the configured grid so panels exist before
// the first client connects. The preset name is looked up from the
// layout presets; an unlisted shape runs as "custom".
func (s *Server) EnsureDefaults(ctx context.Context) error {
	rows, cols := s.cfg.Panels.Rows, s.cfg.Panels.Cols

	name := "custom"
	for _, p := range s.layoutService.Presets() {
		if p.Rows == rows && p.Cols == cols {
			name = p.Name
			break
		}
	}

	return s.panelService.ApplyLayout(ctx, rows, cols, name)
}

// Start begins background services and listens for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting http server")

	if s.watcherService != nil {
		s.watcherService.Start()
	}
	s.scheduler.Start()

	return s.echo.Start(address)
}

// Shutdown gracefully stops background services and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down http server")

	if err := s.scheduler.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to stop scheduler")
	}
	if s.watcherService != nil {
		if err := s.watcherService.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to stop filesystem watcher")
		}
	}

	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for mounting extra routes
// such as the websocket endpoint.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
