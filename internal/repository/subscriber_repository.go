package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriberRepository struct {
	*base.Repository
}

func NewSubscriberRepository(pool *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{Repository: base.NewRepository(pool)}
}

// Upsert привязывает телефон к чату; повторная привязка перезаписывает чат
func (r *SubscriberRepository) Upsert(ctx context.Context, subscriber *model.Subscriber) error {
	query := `
		INSERT INTO subscribers (phone, chat_id, username, first_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE
		SET chat_id = EXCLUDED.chat_id,
		    username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		subscriber.Phone,
		subscriber.ChatID,
		subscriber.Username,
		subscriber.FirstName,
	).Scan(&subscriber.ID, &subscriber.CreatedAt, &subscriber.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}

	return nil
}

// GetByPhone получает подписчика по нормализованному телефону
func (r *SubscriberRepository) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	query := `
		SELECT id, phone, chat_id, username, first_name, created_at, updated_at
		FROM subscribers
		WHERE phone = $1
	`

	var s model.Subscriber
	err := r.QueryRow(ctx, query, phone).Scan(
		&s.ID,
		&s.Phone,
		&s.ChatID,
		&s.Username,
		&s.FirstName,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Телефон не привязан
		}
		return nil, fmt.Errorf("get subscriber by phone: %w", err)
	}

	return &s, nil
}
