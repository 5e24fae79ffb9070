package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const instanceColumns = `id, template_id, hotel, destination, service_date, departs_at, max_capacity, reserved, status, created_at, updated_at`

// InstanceRepository управляет рейсами и счётчиком занятых мест
type InstanceRepository struct {
	*base.Repository
}

func NewInstanceRepository(pool *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{Repository: base.NewRepository(pool)}
}

// CreateIfAbsent создаёт рейс, если для пары (шаблон, дата) его ещё нет
func (r *InstanceRepository) CreateIfAbsent(ctx context.Context, instance *model.ScheduleInstance) (bool, error) {
	query := `
		INSERT INTO schedule_instances (template_id, hotel, destination, service_date, departs_at, max_capacity, reserved, status)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		ON CONFLICT (template_id, service_date) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		instance.TemplateID,
		instance.Hotel,
		instance.Destination,
		instance.ServiceDate,
		instance.DepartsAt,
		instance.MaxCapacity,
		instance.Status,
	).Scan(&instance.ID, &instance.CreatedAt, &instance.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create schedule instance: %w", err)
	}

	instance.Reserved = 0
	return true, nil
}

// GetByID получает рейс по ID
func (r *InstanceRepository) GetByID(ctx context.Context, id int64) (*model.ScheduleInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM schedule_instances WHERE id = $1`

	instance, err := scanInstance(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule instance by id: %w", err)
	}

	return instance, nil
}

// GetForUpdate получает рейс и блокирует его строку до конца транзакции
func (r *InstanceRepository) GetForUpdate(ctx context.Context, id int64) (*model.ScheduleInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM schedule_instances WHERE id = $1 FOR UPDATE`

	instance, err := scanInstance(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock schedule instance: %w", err)
	}

	return instance, nil
}

// ListByDate получает рейсы на дату в порядке отправления
func (r *InstanceRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.ScheduleInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM schedule_instances
		WHERE service_date = $1
		ORDER BY departs_at, id
	`

	rows, err := r.Query(ctx, query, model.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("list schedule instances: %w", err)
	}
	defer rows.Close()

	var instances []*model.ScheduleInstance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule instance: %w", err)
		}
		instances = append(instances, instance)
	}

	return instances, rows.Err()
}

// TryIncrement занимает seats мест одним условным UPDATE: рейс активен,
// отправление позже departsAfter и после списания reserved не превышает max_capacity.
// Статус пересчитывается в том же запросе.
func (r *InstanceRepository) TryIncrement(ctx context.Context, id int64, seats int, departsAfter time.Time) (model.LedgerResult, error) {
	query := `
		UPDATE schedule_instances
		SET reserved = reserved + $2,
		    status = CASE WHEN reserved + $2 >= max_capacity THEN 'full' ELSE 'active' END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND departs_at > $3
		  AND reserved + $2 <= max_capacity
	`

	affected, err := r.ExecAffected(ctx, query, id, seats, departsAfter)
	if err != nil {
		return 0, fmt.Errorf("increment reserved: %w", err)
	}
	if affected == 1 {
		return model.LedgerApplied, nil
	}

	// Место не списано, выясняем причину
	var (
		status    model.InstanceStatus
		departsAt time.Time
	)
	err = r.QueryRow(ctx, `SELECT status, departs_at FROM schedule_instances WHERE id = $1`, id).Scan(&status, &departsAt)
	if err != nil {
		if base.IsNotFound(err) {
			return model.LedgerInstanceNotFound, nil
		}
		return 0, fmt.Errorf("classify increment: %w", err)
	}

	if status != model.InstanceStatusActive || !departsAt.After(departsAfter) {
		return model.LedgerNotBookable, nil
	}
	return model.LedgerInsufficientCapacity, nil
}

// Adjust изменяет reserved на delta, если результат остаётся в 0..max_capacity.
// full и active пересчитываются, терминальные статусы сохраняются.
func (r *InstanceRepository) Adjust(ctx context.Context, id int64, delta int) (model.LedgerResult, error) {
	query := `
		UPDATE schedule_instances
		SET reserved = reserved + $2,
		    status = CASE
		        WHEN status IN ('expired', 'cancelled') THEN status
		        WHEN reserved + $2 >= max_capacity THEN 'full'
		        ELSE 'active'
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND reserved + $2 >= 0
		  AND reserved + $2 <= max_capacity
	`

	affected, err := r.ExecAffected(ctx, query, id, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust reserved: %w", err)
	}
	if affected == 1 {
		return model.LedgerApplied, nil
	}

	var exists bool
	err = r.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schedule_instances WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("classify adjust: %w", err)
	}
	if !exists {
		return model.LedgerInstanceNotFound, nil
	}
	return model.LedgerOutOfBounds, nil
}

// MarkCancelled переводит active или full рейс с датой не раньше notBefore в cancelled
func (r *InstanceRepository) MarkCancelled(ctx context.Context, id int64, notBefore time.Time) (bool, error) {
	query := `
		UPDATE schedule_instances
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1
		  AND status IN ('active', 'full')
		  AND service_date >= $2
	`

	affected, err := r.ExecAffected(ctx, query, id, model.DateOnly(notBefore))
	if err != nil {
		return false, fmt.Errorf("cancel schedule instance: %w", err)
	}

	return affected == 1, nil
}

// ExpireDeparted переводит в expired рейсы с отправлением не позже departsBefore
func (r *InstanceRepository) ExpireDeparted(ctx context.Context, departsBefore time.Time) (int64, error) {
	query := `
		UPDATE schedule_instances
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('active', 'full')
		  AND departs_at <= $1
	`

	affected, err := r.ExecAffected(ctx, query, departsBefore)
	if err != nil {
		return 0, fmt.Errorf("expire schedule instances: %w", err)
	}

	return affected, nil
}

func scanInstance(row pgx.Row) (*model.ScheduleInstance, error) {
	var i model.ScheduleInstance
	err := row.Scan(
		&i.ID,
		&i.TemplateID,
		&i.Hotel,
		&i.Destination,
		&i.ServiceDate,
		&i.DepartsAt,
		&i.MaxCapacity,
		&i.Reserved,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
