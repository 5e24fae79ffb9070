package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const templateColumns = `id, hotel, destination, departure_hour, departure_minute, max_capacity, is_active, created_at, updated_at`

// TemplateRepository управляет шаблонами рейсов в базе данных
type TemplateRepository struct {
	*base.Repository
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новый шаблон
func (r *TemplateRepository) Create(ctx context.Context, template *model.ScheduleTemplate) error {
	query := `
		INSERT INTO schedule_templates (hotel, destination, departure_hour, departure_minute, max_capacity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		template.Hotel,
		template.Destination,
		template.DepartureHour,
		template.DepartureMinute,
		template.MaxCapacity,
		template.IsActive,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create schedule template: %w", err)
	}

	return nil
}

// GetByID получает шаблон по ID
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*model.ScheduleTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM schedule_templates WHERE id = $1`

	template, err := scanTemplate(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule template by id: %w", err)
	}

	return template, nil
}

// List получает все шаблоны
func (r *TemplateRepository) List(ctx context.Context) ([]*model.ScheduleTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM schedule_templates
		ORDER BY hotel, departure_hour, departure_minute, id
	`
	return r.list(ctx, query)
}

// GetAllActive получает все активные шаблоны
func (r *TemplateRepository) GetAllActive(ctx context.Context) ([]*model.ScheduleTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM schedule_templates
		WHERE is_active = true
		ORDER BY hotel, departure_hour, departure_minute, id
	`
	return r.list(ctx, query)
}

// Update обновляет шаблон
func (r *TemplateRepository) Update(ctx context.Context, template *model.ScheduleTemplate) error {
	query := `
		UPDATE schedule_templates
		SET hotel = $1, destination = $2, departure_hour = $3, departure_minute = $4,
		    max_capacity = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		template.Hotel,
		template.Destination,
		template.DepartureHour,
		template.DepartureMinute,
		template.MaxCapacity,
		template.IsActive,
		template.ID,
	).Scan(&template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("update schedule template: %w", err)
	}

	return nil
}

// Deactivate выключает шаблон
func (r *TemplateRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE schedule_templates SET is_active = false, updated_at = NOW() WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate schedule template: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule template %d not found", id)
	}

	return nil
}

func (r *TemplateRepository) list(ctx context.Context, query string, args ...any) ([]*model.ScheduleTemplate, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedule templates: %w", err)
	}
	defer rows.Close()

	var templates []*model.ScheduleTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule template: %w", err)
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func scanTemplate(row pgx.Row) (*model.ScheduleTemplate, error) {
	var t model.ScheduleTemplate
	err := row.Scan(
		&t.ID,
		&t.Hotel,
		&t.Destination,
		&t.DepartureHour,
		&t.DepartureMinute,
		&t.MaxCapacity,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
