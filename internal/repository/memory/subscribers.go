package memory

import (
	"context"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/hashicorp/go-memdb"
)

type SubscriberStore struct {
	s *Store
}

func (r *SubscriberStore) Upsert(ctx context.Context, subscriber *model.Subscriber) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		now := r.s.clock.Now()

		raw, err := txn.First(tableSubscribers, "id", subscriber.Phone)
		if err != nil {
			return err
		}
		if prev, ok := raw.(*model.Subscriber); ok {
			subscriber.ID = prev.ID
			subscriber.CreatedAt = prev.CreatedAt
		} else {
			subscriber.ID = r.s.newID()
			subscriber.CreatedAt = now
		}
		subscriber.UpdatedAt = now

		stored := *subscriber
		return txn.Insert(tableSubscribers, &stored)
	})
}

func (r *SubscriberStore) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	var result *model.Subscriber
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tableSubscribers, "id", phone)
		if err != nil || raw == nil {
			return err
		}
		s := *raw.(*model.Subscriber)
		result = &s
		return nil
	})
	return result, err
}
