package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
)

// TxManager выполняет fn в одной транзакции хранилища.
// Методы хранилищ, вызванные с txCtx, работают внутри этой транзакции.
type TxManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// TemplateStore хранилище шаблонов рейсов
type TemplateStore interface {
	Create(ctx context.Context, template *model.ScheduleTemplate) error
	GetByID(ctx context.Context, id int64) (*model.ScheduleTemplate, error)
	List(ctx context.Context) ([]*model.ScheduleTemplate, error)
	GetAllActive(ctx context.Context) ([]*model.ScheduleTemplate, error)
	Update(ctx context.Context, template *model.ScheduleTemplate) error
	Deactivate(ctx context.Context, id int64) error
}

// InstanceStore хранилище рейсов. TryIncrement и Adjust единственный путь
// изменения счётчика мест; каждый вызов выполняется одной условной операцией.
type InstanceStore interface {
	CreateIfAbsent(ctx context.Context, instance *model.ScheduleInstance) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.ScheduleInstance, error)
	// GetForUpdate блокирует рейс до конца транзакции. Все пути, меняющие рейс
	// и его бронирования, берут блокировку рейса первой.
	GetForUpdate(ctx context.Context, id int64) (*model.ScheduleInstance, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.ScheduleInstance, error)
	TryIncrement(ctx context.Context, id int64, seats int, departsAfter time.Time) (model.LedgerResult, error)
	Adjust(ctx context.Context, id int64, delta int) (model.LedgerResult, error)
	MarkCancelled(ctx context.Context, id int64, notBefore time.Time) (bool, error)
	ExpireDeparted(ctx context.Context, departsBefore time.Time) (int64, error)
}

// BookingStore хранилище бронирований
type BookingStore interface {
	InsertIfAbsent(ctx context.Context, booking *model.Booking) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByCode(ctx context.Context, code string) (*model.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error)
	MarkCancelled(ctx context.Context, id int64, at time.Time) (bool, error)
	CancelAllForInstance(ctx context.Context, instanceID int64, at time.Time) (cancelled int, seats int, err error)
	ListDeliverable(ctx context.Context, limit, maxAttempts int) ([]*model.Booking, error)
	ListUndelivered(ctx context.Context, maxAttempts int) ([]*model.Booking, error)
	RecordDelivery(ctx context.Context, id int64, sent bool, lastError string) error
}

// SubscriberStore хранилище привязок телефон -> чат Telegram
type SubscriberStore interface {
	Upsert(ctx context.Context, subscriber *model.Subscriber) error
	GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error)
}
