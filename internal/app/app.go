// Package app собирает зависимости сервиса бронирования и управляет его жизненным циклом
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/config"
	"github.com/Freeeeeet/shuttle_booking/internal/controller"
	"github.com/Freeeeeet/shuttle_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/shuttle_booking/internal/notifier"
	"github.com/Freeeeeet/shuttle_booking/internal/repository"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/memory"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/Freeeeeet/shuttle_booking/internal/ticket"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Storage набор хранилищ выбранного драйвера
type Storage struct {
	Tx          service.TxManager
	Templates   service.TemplateStore
	Instances   service.InstanceStore
	Bookings    service.BookingStore
	Subscribers service.SubscriberStore

	pool *pgxpool.Pool
}

// Pool возвращает пул Postgres; nil для memory драйвера
func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// OpenStorage подключает хранилище по STORAGE_DRIVER
func OpenStorage(ctx context.Context, cfg *config.Config, clk clockwork.Clock, logger *zap.Logger) (*Storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data will be lost on restart")
		store := memory.NewStore(clk)
		return &Storage{
			Tx:          store,
			Templates:   store.Templates(),
			Instances:   store.Instances(),
			Bookings:    store.Bookings(),
			Subscribers: store.Subscribers(),
		}, nil
	}

	pool, err := ConnectDB(ctx, cfg.DBDSN, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		migrator, err := NewMigrator(pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		err = migrator.Up(ctx)
		_ = migrator.Close()
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Storage{
		Tx:          repository.NewTxManager(pool),
		Templates:   repository.NewTemplateRepository(pool),
		Instances:   repository.NewInstanceRepository(pool),
		Bookings:    repository.NewBookingRepository(pool),
		Subscribers: repository.NewSubscriberRepository(pool),
		pool:        pool,
	}, nil
}

// App все сервисы процесса
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage *Storage

	Lifecycle    *service.ScheduleLifecycle
	Reservations *service.ReservationService
	Schedules    *service.ScheduleService
	Subscribers  *service.SubscriberService
	Queue        *service.NotificationQueue

	bot *bot.Bot
}

// New собирает сервисы поверх хранилища. Без TELEGRAM_TOKEN билеты пишутся в лог.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clockwork.NewRealClock()

	storage, err := OpenStorage(ctx, cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	subscribers := service.NewSubscriberService(storage.Subscribers, cfg.DefaultPhoneRegion, logger)

	var (
		channel     service.Channel
		telegramBot *bot.Bot
	)
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.WithErrorsHandler(func(err error) {
			logger.Warn("Telegram bot error", zap.Error(err))
		}))
		if err != nil {
			storage.Close()
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		channel = notifier.NewTelegram(telegramBot, storage.Subscribers, logger)
	} else {
		logger.Warn("TELEGRAM_TOKEN is not set, tickets will only be logged")
		channel = notifier.NewLog(logger)
	}

	lifecycle := service.NewScheduleLifecycle(storage.Instances, cfg.BoardingLead, loc, clk, logger)
	ledger := service.NewCapacityLedger(storage.Instances, cfg.BoardingLead, logger)
	queue := service.NewNotificationQueue(
		storage.Bookings,
		storage.Instances,
		channel,
		ticket.NewRenderer(loc, cfg.BoardingLead),
		service.QueueConfig{
			Workers:     cfg.NotifyWorkers,
			QueueSize:   cfg.NotifyQueueSize,
			MaxAttempts: cfg.NotifyMaxAttempts,
			SendTimeout: cfg.NotifySendTimeout,
		},
		logger,
	)
	reservations := service.NewReservationService(
		storage.Tx,
		storage.Instances,
		storage.Bookings,
		service.NewIdempotencyGuard(storage.Bookings),
		ledger,
		lifecycle,
		queue,
		logger,
		service.WithCodePrefix(cfg.BookingCodePrefix),
		service.WithPhoneRegion(cfg.DefaultPhoneRegion),
		service.WithClock(clk),
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Storage:      storage,
		Lifecycle:    lifecycle,
		Reservations: reservations,
		Schedules:    service.NewScheduleService(storage.Templates, storage.Instances, lifecycle, clk, logger),
		Subscribers:  subscribers,
		Queue:        queue,
		bot:          telegramBot,
	}, nil
}

// Close освобождает соединения
func (a *App) Close() {
	a.Storage.Close()
}

// Run запускает HTTP API, воркеры уведомлений, планировщик и бота до отмены ctx
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config

	handler := httpapi.NewHandler(a.Reservations, a.Schedules, a.Lifecycle, a.Queue, clockwork.NewRealClock(), cfg.NotifyBatchSize, a.Logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		CronSecret:     cfg.CronSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Production:     cfg.IsProduction(),
	}, a.Logger)
	server := httpapi.NewServer(cfg.HTTPAddr, router, a.Logger)

	scheduler := NewScheduler(a.Schedules, a.Lifecycle, a.Queue, SchedulerConfig{
		DaysAhead:     cfg.GenerateDaysAhead,
		SweepInterval: cfg.ExpirySweepInterval,
		BatchInterval: cfg.NotifyBatchInterval,
		BatchSize:     cfg.NotifyBatchSize,
	}, a.Logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		a.Queue.Start(ctx)
		<-ctx.Done()
		a.Queue.Wait()
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	if a.bot != nil {
		botController := controller.NewBotController(a.bot, a.Subscribers, a.Reservations, a.Queue, a.Logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			a.Logger.Warn("Bot commands menu is not set", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(ctx)
		})
	}

	start := time.Now()
	err := g.Wait()
	a.Logger.Info("Shuttle booking service stopped", zap.Duration("uptime", time.Since(start)))
	return err
}
