package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	MaxPassengers     = 5
	maxNameLength     = 100
	maxRoomLength     = 20
	maxKeyLength      = 128
	maxCodeGeneration = 3
)

// ReserveRequest запрос гостя на бронирование
type ReserveRequest struct {
	CustomerName       string
	Phone              string
	PassengerCount     int
	InstanceID         int64
	IdempotencyKey     string
	RoomNumber         string
	ChannelUnreachable bool
}

// Reservation результат бронирования. Duplicate означает повтор запроса с известным
// ключом: Code указывает на исходное бронирование, Booking не заполнен.
type Reservation struct {
	Booking   *model.Booking
	Code      string
	Duplicate bool
}

type CancelOutcome int

const (
	CancelOutcomeCancelled CancelOutcome = iota + 1
	CancelOutcomeAlreadyCancelled
)

func (o CancelOutcome) String() string {
	switch o {
	case CancelOutcomeCancelled:
		return "cancelled"
	case CancelOutcomeAlreadyCancelled:
		return "already_cancelled"
	default:
		return "unknown"
	}
}

// NotificationEnqueuer ставит уведомление в очередь, не блокируя вызывающего
type NotificationEnqueuer interface {
	Enqueue(bookingID int64)
}

type ReservationService struct {
	tx        TxManager
	instances InstanceStore
	bookings  BookingStore
	guard     *IdempotencyGuard
	ledger    *CapacityLedger
	lifecycle *ScheduleLifecycle
	queue     NotificationEnqueuer
	clock     clockwork.Clock
	prefix    string
	region    string
	logger    *zap.Logger
}

type ReservationOption func(*ReservationService)

// WithCodePrefix задаёт префикс кодов бронирования
func WithCodePrefix(prefix string) ReservationOption {
	return func(s *ReservationService) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithPhoneRegion задаёт страну, по которой разбираются номера без кода страны
func WithPhoneRegion(region string) ReservationOption {
	return func(s *ReservationService) {
		if region != "" {
			s.region = region
		}
	}
}

// WithClock подменяет источник времени
func WithClock(clk clockwork.Clock) ReservationOption {
	return func(s *ReservationService) {
		if clk != nil {
			s.clock = clk
		}
	}
}

func NewReservationService(
	tx TxManager,
	instances InstanceStore,
	bookings BookingStore,
	guard *IdempotencyGuard,
	ledger *CapacityLedger,
	lifecycle *ScheduleLifecycle,
	queue NotificationEnqueuer,
	logger *zap.Logger,
	opts ...ReservationOption,
) *ReservationService {
	s := &ReservationService{
		tx:        tx,
		instances: instances,
		bookings:  bookings,
		guard:     guard,
		ledger:    ledger,
		lifecycle: lifecycle,
		queue:     queue,
		clock:     clockwork.NewRealClock(),
		prefix:    DefaultCodePrefix,
		region:    DefaultPhoneRegion,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve бронирует места на рейс.
// Повтор с известным ключом возвращает исходный код без ошибки.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	req, err := validateReserveRequest(req, s.region)
	if err != nil {
		return nil, err
	}

	admission, err := s.guard.Admit(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("admit idempotency key: %w", err)
	}
	if !admission.Admitted {
		s.logger.Info("Duplicate reservation request",
			zap.String("code", admission.ExistingCode),
			zap.Int64("instance_id", req.InstanceID),
		)
		return &Reservation{Code: admission.ExistingCode, Duplicate: true}, nil
	}

	instance, err := s.instances.GetByID(ctx, req.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule instance: %w", err)
	}
	if instance == nil || !s.lifecycle.IsBookable(instance, s.clock.Now()) {
		return nil, ErrScheduleNotBookable
	}

	booking := &model.Booking{
		IdempotencyKey:     req.IdempotencyKey,
		InstanceID:         instance.ID,
		CustomerName:       req.CustomerName,
		Phone:              req.Phone,
		RoomNumber:         req.RoomNumber,
		PassengerCount:     req.PassengerCount,
		Status:             model.BookingStatusConfirmed,
		ChannelUnreachable: req.ChannelUnreachable,
	}

	for attempt := 1; ; attempt++ {
		booking.Code, err = NewBookingCode(s.prefix)
		if err != nil {
			return nil, err
		}

		err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.guard.Register(txCtx, booking); err != nil {
				return err
			}

			result, err := s.ledger.TryReserve(txCtx, instance.ID, booking.PassengerCount, s.clock.Now())
			if err != nil {
				return err
			}

			switch result {
			case model.LedgerApplied:
				return nil
			case model.LedgerInsufficientCapacity:
				return ErrInsufficientCapacity
			default:
				return ErrScheduleNotBookable
			}
		})

		if errors.Is(err, model.ErrBookingCodeTaken) && attempt < maxCodeGeneration {
			s.logger.Warn("Booking code collision, regenerating", zap.Int("attempt", attempt))
			continue
		}
		break
	}

	var dup *DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		s.logger.Info("Concurrent duplicate reservation resolved",
			zap.String("code", dup.Code),
			zap.Int64("instance_id", instance.ID),
		)
		return &Reservation{Code: dup.Code, Duplicate: true}, nil
	case errors.Is(err, ErrInsufficientCapacity), errors.Is(err, ErrScheduleNotBookable):
		s.logger.Info("Reservation rejected",
			zap.Int64("instance_id", instance.ID),
			zap.Int("passengers", booking.PassengerCount),
			zap.String("reason", err.Error()),
		)
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("reserve seats: %w", err)
	}

	s.queue.Enqueue(booking.ID)

	s.logger.Info("Seats reserved",
		zap.Int64("booking_id", booking.ID),
		zap.String("code", booking.Code),
		zap.Int64("instance_id", instance.ID),
		zap.Int("passengers", booking.PassengerCount),
	)

	booking.Instance = instance
	return &Reservation{Booking: booking, Code: booking.Code}, nil
}

// LookupByKey возвращает код бронирования для ключа идемпотентности
func (s *ReservationService) LookupByKey(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, &ValidationError{Field: "idempotency_key", Msg: "is required"}
	}
	return s.guard.Lookup(ctx, key)
}

// GetByCode получает бронирование по коду вместе с рейсом
func (s *ReservationService) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	booking, err := s.bookings.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("get booking by code: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	instance, err := s.instances.GetByID(ctx, booking.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule instance: %w", err)
	}
	booking.Instance = instance

	return booking, nil
}

// Cancel отменяет бронирование и возвращает места ровно один раз.
// Повторная или параллельная отмена получает CancelOutcomeAlreadyCancelled.
func (s *ReservationService) Cancel(ctx context.Context, bookingID int64) (CancelOutcome, error) {
	var outcome CancelOutcome

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.bookings.GetByID(txCtx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil {
			return ErrBookingNotFound
		}

		// порядок блокировок как в CancelInstance: сначала рейс, потом бронирование
		if _, err := s.instances.GetForUpdate(txCtx, booking.InstanceID); err != nil {
			return fmt.Errorf("lock schedule instance: %w", err)
		}

		changed, err := s.bookings.MarkCancelled(txCtx, bookingID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("mark booking cancelled: %w", err)
		}
		if !changed {
			outcome = CancelOutcomeAlreadyCancelled
			return nil
		}

		result, err := s.ledger.Release(txCtx, booking.InstanceID, booking.PassengerCount)
		if err != nil {
			return err
		}
		if result != model.LedgerApplied {
			return fmt.Errorf("release %d seats on instance %d: %s", booking.PassengerCount, booking.InstanceID, result)
		}

		outcome = CancelOutcomeCancelled
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Booking cancel processed",
		zap.Int64("booking_id", bookingID),
		zap.Stringer("outcome", outcome),
	)

	return outcome, nil
}

// CancelByCode отменяет бронирование по коду
func (s *ReservationService) CancelByCode(ctx context.Context, code string) (CancelOutcome, error) {
	booking, err := s.bookings.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, fmt.Errorf("get booking by code: %w", err)
	}
	if booking == nil {
		return 0, ErrBookingNotFound
	}
	return s.Cancel(ctx, booking.ID)
}

// CancelInstance отменяет рейс, все его подтверждённые бронирования и возвращает их места
func (s *ReservationService) CancelInstance(ctx context.Context, instanceID int64) (CancelOutcome, error) {
	var (
		outcome   CancelOutcome
		cancelled int
		seats     int
	)

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		instance, err := s.instances.GetForUpdate(txCtx, instanceID)
		if err != nil {
			return fmt.Errorf("lock schedule instance: %w", err)
		}
		if instance == nil {
			return ErrInstanceNotFound
		}
		if instance.Status == model.InstanceStatusCancelled {
			outcome = CancelOutcomeAlreadyCancelled
			return nil
		}
		if err := s.lifecycle.CheckCancellable(instance, now); err != nil {
			return err
		}

		changed, err := s.instances.MarkCancelled(txCtx, instanceID, s.lifecycle.Today(now))
		if err != nil {
			return fmt.Errorf("mark instance cancelled: %w", err)
		}
		if !changed {
			current, err := s.instances.GetByID(txCtx, instanceID)
			if err != nil {
				return fmt.Errorf("get schedule instance: %w", err)
			}
			if current != nil && current.Status == model.InstanceStatusCancelled {
				outcome = CancelOutcomeAlreadyCancelled
				return nil
			}
			return ErrInstanceNotCancellable
		}

		cancelled, seats, err = s.bookings.CancelAllForInstance(txCtx, instanceID, now)
		if err != nil {
			return fmt.Errorf("cancel instance bookings: %w", err)
		}
		if seats > 0 {
			result, err := s.ledger.Release(txCtx, instanceID, seats)
			if err != nil {
				return err
			}
			if result != model.LedgerApplied {
				return fmt.Errorf("release %d seats on instance %d: %s", seats, instanceID, result)
			}
		}

		outcome = CancelOutcomeCancelled
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Schedule instance cancel processed",
		zap.Int64("instance_id", instanceID),
		zap.Stringer("outcome", outcome),
		zap.Int("bookings_cancelled", cancelled),
		zap.Int("seats_released", seats),
	)

	return outcome, nil
}

// AdjustCapacity внешний RPC изменения счётчика мест
func (s *ReservationService) AdjustCapacity(ctx context.Context, instanceID int64, delta int) (*model.ScheduleInstance, error) {
	result, err := s.ledger.Adjust(ctx, instanceID, delta)
	if err != nil {
		return nil, err
	}

	switch result {
	case model.LedgerApplied:
	case model.LedgerInstanceNotFound:
		return nil, ErrInstanceNotFound
	default:
		return nil, ErrLedgerBounds
	}

	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule instance: %w", err)
	}
	return instance, nil
}

// ListSchedules возвращает рейсы на дату с вычисленными статусами
func (s *ReservationService) ListSchedules(ctx context.Context, date time.Time) ([]InstanceView, error) {
	instances, err := s.instances.ListByDate(ctx, model.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("list schedule instances: %w", err)
	}

	now := s.clock.Now()
	views := make([]InstanceView, 0, len(instances))
	for _, instance := range instances {
		views = append(views, s.lifecycle.View(instance, now))
	}
	return views, nil
}

// GetInstance возвращает рейс с вычисленным статусом
func (s *ReservationService) GetInstance(ctx context.Context, instanceID int64) (*InstanceView, error) {
	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule instance: %w", err)
	}
	if instance == nil {
		return nil, ErrInstanceNotFound
	}
	view := s.lifecycle.View(instance, s.clock.Now())
	return &view, nil
}

func validateReserveRequest(req ReserveRequest, region string) (ReserveRequest, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.RoomNumber = strings.TrimSpace(req.RoomNumber)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	switch {
	case req.CustomerName == "":
		return req, &ValidationError{Field: "customer_name", Msg: "is required"}
	case len([]rune(req.CustomerName)) > maxNameLength:
		return req, &ValidationError{Field: "customer_name", Msg: "is too long"}
	case req.PassengerCount < 1 || req.PassengerCount > MaxPassengers:
		return req, &ValidationError{Field: "passenger_count", Msg: fmt.Sprintf("must be between 1 and %d", MaxPassengers)}
	case req.InstanceID <= 0:
		return req, &ValidationError{Field: "schedule_instance_id", Msg: "is required"}
	case req.IdempotencyKey == "":
		return req, &ValidationError{Field: "idempotency_key", Msg: "is required"}
	case len(req.IdempotencyKey) > maxKeyLength:
		return req, &ValidationError{Field: "idempotency_key", Msg: "is too long"}
	case len([]rune(req.RoomNumber)) > maxRoomLength:
		return req, &ValidationError{Field: "room_number", Msg: "is too long"}
	}

	phone, err := model.NormalizePhone(req.Phone, region)
	if err != nil {
		return req, &ValidationError{Field: "phone", Msg: "is not a valid phone number"}
	}
	req.Phone = phone

	return req, nil
}
