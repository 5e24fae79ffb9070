package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"go.uber.org/zap"
)

const generationInterval = 24 * time.Hour

type SchedulerConfig struct {
	DaysAhead     int
	SweepInterval time.Duration
	BatchInterval time.Duration // 0 отключает встроенный батч уведомлений
	BatchSize     int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	schedules *service.ScheduleService
	lifecycle *service.ScheduleLifecycle
	queue     *service.NotificationQueue
	cfg       SchedulerConfig
	logger    *zap.Logger
	stopChan  chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	schedules *service.ScheduleService,
	lifecycle *service.ScheduleLifecycle,
	queue *service.NotificationQueue,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		lifecycle: lifecycle,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Run запускает фоновые задачи и блокируется до отмены ctx или Stop
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting background scheduler",
		zap.Int("days_ahead", s.cfg.DaysAhead),
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
		zap.Duration("batch_interval", s.cfg.BatchInterval),
	)

	var wg sync.WaitGroup
	run := func(task func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task(ctx)
		}()
	}

	run(s.runGenerationTask)
	if s.cfg.SweepInterval > 0 {
		run(s.runSweepTask)
	}
	if s.cfg.BatchInterval > 0 {
		run(s.runBatchTask)
	}

	wg.Wait()
	return nil
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// every вызывает fn сразу и затем с периодом interval
func (s *Scheduler) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-s.stopChan:
			s.logger.Info("Background task stopped", zap.String("task", name))
			return
		case <-ctx.Done():
			s.logger.Info("Background task cancelled", zap.String("task", name))
			return
		}
	}
}

// runGenerationTask раз в сутки достраивает рейсы на DaysAhead дней вперёд
func (s *Scheduler) runGenerationTask(ctx context.Context) {
	s.every(ctx, "generation", generationInterval, s.generate)
}

func (s *Scheduler) runSweepTask(ctx context.Context) {
	s.every(ctx, "expiry_sweep", s.cfg.SweepInterval, s.sweep)
}

func (s *Scheduler) runBatchTask(ctx context.Context) {
	s.every(ctx, "notification_batch", s.cfg.BatchInterval, s.processBatch)
}

func (s *Scheduler) generate(ctx context.Context) {
	s.logger.Info("Starting automatic schedule generation")

	result, err := s.schedules.GenerateAhead(ctx, s.cfg.DaysAhead)
	if err != nil {
		s.logger.Error("Failed to generate schedules",
			zap.Error(err),
			zap.Int("created", result.Created),
			zap.Int("failed", result.Failed),
		)
		return
	}

	s.logger.Info("Automatic schedule generation completed", zap.Int("created", result.Created))
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.lifecycle.SweepExpired(ctx); err != nil {
		s.logger.Error("Failed to expire departed instances", zap.Error(err))
	}
}

func (s *Scheduler) processBatch(ctx context.Context) {
	if _, err := s.queue.ProcessBatch(ctx, s.cfg.BatchSize, s.queue.MaxAttempts()); err != nil {
		s.logger.Error("Failed to process notification batch", zap.Error(err))
	}
}
