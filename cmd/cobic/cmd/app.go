package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/adapters/events"
	"github.com/layer-3/cobic/adapters/store"
	"github.com/layer-3/cobic/adapters/tokenizer"
	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/config"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/countdown"
	"github.com/layer-3/cobic/logging"
	"github.com/layer-3/cobic/ports"
	"github.com/layer-3/cobic/service"
	"github.com/layer-3/cobic/session"
)

type credentialStore interface {
	ports.TokenStore
	ports.ReminderStore
}

// app is the wiring shared by every command
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer

	store      credentialStore
	client     *api.Client
	controller *session.Controller
	reminder   *countdown.Reminder
	publisher  *events.WatermillPublisher

	auth    *service.AuthService
	mining  *service.MiningService
	user    *service.UserService
	wallet  *service.TransactionService
	tasks   *service.TaskService
	qr      *service.QRService
	kyc     *service.KYCService
	system  *service.SystemService
	closers []func() error

	cancel context.CancelFunc
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	logger := logging.New(logging.Format(cfg.LogFormat), cfg.LogLevel)
	logger.SetOutput(io.Discard)
	if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" {
		logger.SetOutput(out)
	}

	a := &app{cfg: cfg, logger: logger, out: out}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	var redisClient *redis.Client
	if cfg.Store == config.StoreRedis || cfg.Events == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
	}

	switch cfg.Store {
	case config.StoreMemory:
		a.store = store.NewMemoryStore()
	case config.StoreRedis:
		a.store = store.NewRedisStore(redisClient, "cobic:")
	default:
		path := cfg.StorePath
		if path == "" {
			p, err := store.DefaultFilePath()
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to resolve credential path: %w", err)
			}
			path = p
		}
		fs, err := store.NewFileStore(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = fs
	}

	wmLogger := events.NewLogrusAdapter(logger)
	var bus events.PubSub
	if cfg.Events == "redis" {
		rs, err := events.NewRedisStream(redisClient, "", wmLogger)
		if err != nil {
			a.Close()
			return nil, err
		}
		bus = rs
	} else {
		bus = events.NewGoChannel(wmLogger)
	}
	// closed before the redis client it may share
	a.closers = append([]func() error{bus.Close}, a.closers...)
	a.publisher = events.NewWatermillPublisher(bus)

	if err := events.Listen(ctx, bus, events.Handlers{
		Session:      a.onSessionEvent,
		Notification: a.onNotification,
	}, logger); err != nil {
		a.Close()
		return nil, err
	}

	clientOpts := []api.Option{
		api.WithLogger(logger.WithField("component", "api")),
		api.WithDefaultTimeout(cfg.RequestTimeout),
		api.WithHeaders(api.Headers{
			AppVersion:  cfg.AppVersion,
			Platform:    cfg.Platform,
			Environment: cfg.Environment,
		}),
	}
	if probe, err := api.NewDialProbe(cfg.APIURL, 3*time.Second); err == nil {
		clientOpts = append(clientOpts, api.WithProbe(probe))
	} else {
		logger.WithError(err).Warn("Reachability probe disabled")
	}
	a.client = api.NewClient(cfg.APIURL, a.store, clientOpts...)

	a.auth = service.NewAuthService(a.client)
	a.controller = session.NewController(a.store, a.auth, a.publisher,
		session.WithInspector(tokenizer.NewInspector()),
		session.WithLogger(logger.WithField("component", "session")),
	)
	a.controller.Attach(a.client)

	a.reminder = countdown.NewReminder(a.store, a.publisher, countdown.RealClock(), logger.WithField("component", "reminder"))
	a.controller.OnSignedOut(func(ctx context.Context) {
		if err := a.reminder.Cancel(ctx); err != nil {
			logger.WithError(err).Warn("Failed to cancel check-in reminder")
		}
	})
	if err := a.reminder.Restore(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore check-in reminder")
	}

	a.mining = service.NewMiningService(a.client, a.controller, a.reminder)
	a.user = service.NewUserService(a.client, a.controller)
	a.wallet = service.NewTransactionService(a.client, a.controller)
	a.tasks = service.NewTaskService(a.client, a.controller)
	a.qr = service.NewQRService(a.client, a.controller)
	a.kyc = service.NewKYCService(a.client, a.controller, cfg.UploadTimeout)
	a.system = service.NewSystemService(a.client)
	return a, nil
}

// requireSession restores the stored session or fails with a login hint
func (a *app) requireSession(ctx context.Context) (*core.User, error) {
	state, err := a.controller.CheckAuth(ctx)
	if err != nil {
		return nil, err
	}
	if state != core.StateAuthenticated {
		return nil, core.ErrNotAuthenticated
	}
	return a.controller.User(), nil
}

func (a *app) onSessionEvent(e core.SessionEvent) {
	switch e.Type {
	case core.EventSessionExpired:
		warn.Fprintln(a.out, "Your session has expired. Run 'cobic login' to sign in again.")
	}
	a.logger.WithFields(logrus.Fields{"type": e.Type, "route": e.Route}).Debug("Session event")
}

func (a *app) onNotification(n core.Notification) {
	highlight.Fprintf(a.out, "\n%s %s\n", n.Title, n.Body)
}

// Close releases the store, the event bus and the redis connection
func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.WithError(err).Debug("Close failed")
		}
	}
}
