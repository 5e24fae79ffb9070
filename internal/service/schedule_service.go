package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const maxGenerateDays = 90

// ScheduleService управляет шаблонами рейсов и генерацией ежедневных рейсов
type ScheduleService struct {
	templates TemplateStore
	instances InstanceStore
	lifecycle *ScheduleLifecycle
	clock     clockwork.Clock
	logger    *zap.Logger
}

func NewScheduleService(
	templates TemplateStore,
	instances InstanceStore,
	lifecycle *ScheduleLifecycle,
	clk clockwork.Clock,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		templates: templates,
		instances: instances,
		lifecycle: lifecycle,
		clock:     clk,
		logger:    logger,
	}
}

// CreateTemplate создаёт активный шаблон рейса
func (s *ScheduleService) CreateTemplate(ctx context.Context, template *model.ScheduleTemplate) error {
	if err := template.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	template.IsActive = true
	if err := s.templates.Create(ctx, template); err != nil {
		return fmt.Errorf("create schedule template: %w", err)
	}

	s.logger.Info("Schedule template created",
		zap.Int64("template_id", template.ID),
		zap.String("hotel", template.Hotel),
		zap.String("destination", template.Destination),
		zap.String("departure", template.DepartureLabel()),
		zap.Int("max_capacity", template.MaxCapacity),
	)

	return nil
}

// UpdateTemplate изменяет шаблон. Уже созданные рейсы не меняются:
// вместимость копируется в рейс при генерации.
// active == nil оставляет флаг активности как есть.
func (s *ScheduleService) UpdateTemplate(ctx context.Context, template *model.ScheduleTemplate, active *bool) error {
	if err := template.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	existing, err := s.templates.GetByID(ctx, template.ID)
	if err != nil {
		return fmt.Errorf("get schedule template: %w", err)
	}
	if existing == nil {
		return ErrTemplateNotFound
	}

	template.IsActive = existing.IsActive
	if active != nil {
		template.IsActive = *active
	}

	if err := s.templates.Update(ctx, template); err != nil {
		return fmt.Errorf("update schedule template: %w", err)
	}

	s.logger.Info("Schedule template updated", zap.Int64("template_id", template.ID))
	return nil
}

// DeactivateTemplate выключает шаблон; новые рейсы по нему не генерируются
func (s *ScheduleService) DeactivateTemplate(ctx context.Context, templateID int64) error {
	existing, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("get schedule template: %w", err)
	}
	if existing == nil {
		return ErrTemplateNotFound
	}

	if err := s.templates.Deactivate(ctx, templateID); err != nil {
		return fmt.Errorf("deactivate schedule template: %w", err)
	}

	s.logger.Info("Schedule template deactivated", zap.Int64("template_id", templateID))
	return nil
}

// ListTemplates возвращает все шаблоны
func (s *ScheduleService) ListTemplates(ctx context.Context) ([]*model.ScheduleTemplate, error) {
	return s.templates.List(ctx)
}

// GenerateResult итог генерации рейсов
type GenerateResult struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// Generate создаёт рейсы из активных шаблонов на days дней начиная с start.
// Повторный запуск для тех же дат не создаёт дублей. Ошибка отдельного рейса
// не останавливает генерацию остальных: такие рейсы считаются в Failed,
// а их ошибки возвращаются вместе.
func (s *ScheduleService) Generate(ctx context.Context, start time.Time, days int) (GenerateResult, error) {
	var result GenerateResult

	if days <= 0 || days > maxGenerateDays {
		return result, &ValidationError{Field: "days", Msg: fmt.Sprintf("must be between 1 and %d", maxGenerateDays)}
	}

	templates, err := s.templates.GetAllActive(ctx)
	if err != nil {
		return result, fmt.Errorf("get active schedule templates: %w", err)
	}

	loc := s.lifecycle.Location()
	now := s.clock.Now()
	first := model.DateOnly(start)

	var errs []error
	for i := 0; i < days; i++ {
		date := first.AddDate(0, 0, i)

		for _, template := range templates {
			departsAt := template.DepartureOn(date, loc)

			// Пропускаем рейсы, посадка на которые уже закрыта
			if !now.Before(departsAt.Add(-s.lifecycle.Lead())) {
				continue
			}

			instance := &model.ScheduleInstance{
				TemplateID:  template.ID,
				Hotel:       template.Hotel,
				Destination: template.Destination,
				ServiceDate: date,
				DepartsAt:   departsAt,
				MaxCapacity: template.MaxCapacity,
				Status:      model.InstanceStatusActive,
			}

			inserted, err := s.instances.CreateIfAbsent(ctx, instance)
			if err != nil {
				s.logger.Warn("Failed to create schedule instance",
					zap.Error(err),
					zap.Int64("template_id", template.ID),
					zap.Time("departs_at", departsAt),
				)
				result.Failed++
				errs = append(errs, fmt.Errorf("template %d on %s: %w", template.ID, date.Format(time.DateOnly), err))
				continue
			}
			if inserted {
				result.Created++
			}
		}
	}

	s.logger.Info("Generated schedule instances",
		zap.Time("start", first),
		zap.Int("days", days),
		zap.Int("templates", len(templates)),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)

	if len(errs) > 0 {
		return result, fmt.Errorf("create schedule instances: %w", errors.Join(errs...))
	}
	return result, nil
}

// GenerateAhead генерирует рейсы на daysAhead дней начиная с сегодняшней даты отеля
func (s *ScheduleService) GenerateAhead(ctx context.Context, daysAhead int) (GenerateResult, error) {
	return s.Generate(ctx, s.lifecycle.Today(s.clock.Now()), daysAhead)
}
