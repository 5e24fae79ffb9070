// Package memory хранилище в памяти процесса для разработки и тестов поверх go-memdb.
// Записи идут через одну пишущую транзакцию memdb за раз, WithTx держит её до конца
// и при ошибке делает Abort.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"github.com/jonboulle/clockwork"
)

const (
	tableTemplates   = "templates"
	tableInstances   = "instances"
	tableBookings    = "bookings"
	tableSubscribers = "subscribers"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTemplates: {
				Name: tableTemplates,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "ID"}},
				},
			},
			tableInstances: {
				Name: tableInstances,
				Indexes: map[string]*memdb.IndexSchema{
					"id":            {Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "ID"}},
					"template_date": {Name: "template_date", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Key"}},
				},
			},
			tableBookings: {
				Name: tableBookings,
				Indexes: map[string]*memdb.IndexSchema{
					"id":       {Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "ID"}},
					"code":     {Name: "code", Unique: true, AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: "Code"}},
					"key":      {Name: "key", Unique: true, AllowMissing: true, Indexer: &memdb.StringFieldIndex{Field: "IdempotencyKey"}},
					"instance": {Name: "instance", Indexer: &memdb.IntFieldIndex{Field: "InstanceID"}},
				},
			},
			tableSubscribers: {
				Name: tableSubscribers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Phone"}},
				},
			},
		},
	}
}

type txKey struct{}

// txState пишущая транзакция, привязанная к конкретному хранилищу
type txState struct {
	store *Store
	txn   *memdb.Txn
}

type Store struct {
	db     *memdb.MemDB
	clock  clockwork.Clock
	nextID atomic.Int64
}

func NewStore(clk clockwork.Clock) *Store {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	db, err := memdb.NewMemDB(schema())
	if err != nil {
		// схема статична, ошибка означает ошибку в коде
		panic(fmt.Sprintf("memory store schema: %v", err))
	}

	return &Store{db: db, clock: clk}
}

func (s *Store) current(ctx context.Context) *memdb.Txn {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.store == s {
		return tx.txn
	}
	return nil
}

// WithTx выполняет fn в одной пишущей транзакции.
// При ошибке все изменения, сделанные через txCtx, отбрасываются.
func (s *Store) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if s.current(ctx) != nil {
		return fn(ctx)
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(context.WithValue(ctx, txKey{}, &txState{store: s, txn: txn})); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// write выполняет fn в текущей транзакции или в собственной пишущей
func (s *Store) write(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if txn := s.current(ctx); txn != nil {
		return fn(txn)
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// read читает из текущей транзакции, чтобы видеть её изменения, иначе из снимка
func (s *Store) read(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if txn := s.current(ctx); txn != nil {
		return fn(txn)
	}

	txn := s.db.Txn(false)
	defer txn.Abort()
	return fn(txn)
}

func (s *Store) newID() int64 {
	return s.nextID.Add(1)
}

func (s *Store) Templates() *TemplateStore {
	return &TemplateStore{s: s}
}

func (s *Store) Instances() *InstanceStore {
	return &InstanceStore{s: s}
}

func (s *Store) Bookings() *BookingStore {
	return &BookingStore{s: s}
}

func (s *Store) Subscribers() *SubscriberStore {
	return &SubscriberStore{s: s}
}
