package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/hashicorp/go-memdb"
)

// instanceRecord рейс с ключом уникальности (шаблон, дата)
type instanceRecord struct {
	model.ScheduleInstance
	Key string
}

func instanceKey(templateID int64, date time.Time) string {
	return fmt.Sprintf("%d/%s", templateID, model.DateOnly(date).Format(time.DateOnly))
}

type InstanceStore struct {
	s *Store
}

func getInstance(txn *memdb.Txn, id int64) (*instanceRecord, error) {
	raw, err := txn.First(tableInstances, "id", id)
	if err != nil || raw == nil {
		return nil, err
	}
	rec := *raw.(*instanceRecord)
	return &rec, nil
}

func (r *InstanceStore) CreateIfAbsent(ctx context.Context, instance *model.ScheduleInstance) (bool, error) {
	var inserted bool
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		key := instanceKey(instance.TemplateID, instance.ServiceDate)
		existing, err := txn.First(tableInstances, "template_date", key)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		now := r.s.clock.Now()
		instance.ID = r.s.newID()
		instance.ServiceDate = model.DateOnly(instance.ServiceDate)
		instance.Reserved = 0
		instance.CreatedAt = now
		instance.UpdatedAt = now

		if err := txn.Insert(tableInstances, &instanceRecord{ScheduleInstance: *instance, Key: key}); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *InstanceStore) GetByID(ctx context.Context, id int64) (*model.ScheduleInstance, error) {
	var result *model.ScheduleInstance
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		rec, err := getInstance(txn, id)
		if rec != nil {
			result = &rec.ScheduleInstance
		}
		return err
	})
	return result, err
}

// GetForUpdate в memdb совпадает с GetByID: пишущая транзакция уже единственная
func (r *InstanceStore) GetForUpdate(ctx context.Context, id int64) (*model.ScheduleInstance, error) {
	return r.GetByID(ctx, id)
}

func (r *InstanceStore) ListByDate(ctx context.Context, date time.Time) ([]*model.ScheduleInstance, error) {
	day := model.DateOnly(date)

	var result []*model.ScheduleInstance
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		return r.each(txn, func(rec *instanceRecord) error {
			if rec.ServiceDate.Equal(day) {
				result = append(result, &rec.ScheduleInstance)
			}
			return nil
		})
	})

	sort.Slice(result, func(a, b int) bool {
		if !result[a].DepartsAt.Equal(result[b].DepartsAt) {
			return result[a].DepartsAt.Before(result[b].DepartsAt)
		}
		return result[a].ID < result[b].ID
	})
	return result, err
}

func (r *InstanceStore) TryIncrement(ctx context.Context, id int64, seats int, departsAfter time.Time) (model.LedgerResult, error) {
	var result model.LedgerResult
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		rec, err := getInstance(txn, id)
		switch {
		case err != nil:
			return err
		case rec == nil:
			result = model.LedgerInstanceNotFound
			return nil
		case rec.Status != model.InstanceStatusActive || !rec.DepartsAt.After(departsAfter):
			result = model.LedgerNotBookable
			return nil
		case rec.Reserved+seats > rec.MaxCapacity:
			result = model.LedgerInsufficientCapacity
			return nil
		}

		result = model.LedgerApplied
		return r.update(txn, rec, rec.Reserved+seats)
	})
	return result, err
}

func (r *InstanceStore) Adjust(ctx context.Context, id int64, delta int) (model.LedgerResult, error) {
	var result model.LedgerResult
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		rec, err := getInstance(txn, id)
		if err != nil {
			return err
		}
		if rec == nil {
			result = model.LedgerInstanceNotFound
			return nil
		}

		reserved := rec.Reserved + delta
		if reserved < 0 || reserved > rec.MaxCapacity {
			result = model.LedgerOutOfBounds
			return nil
		}

		result = model.LedgerApplied
		return r.update(txn, rec, reserved)
	})
	return result, err
}

func (r *InstanceStore) update(txn *memdb.Txn, rec *instanceRecord, reserved int) error {
	rec.Status = model.StatusForReserved(rec.Status, reserved, rec.MaxCapacity)
	rec.Reserved = reserved
	rec.UpdatedAt = r.s.clock.Now()
	return txn.Insert(tableInstances, rec)
}

func (r *InstanceStore) MarkCancelled(ctx context.Context, id int64, notBefore time.Time) (bool, error) {
	var changed bool
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		rec, err := getInstance(txn, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Status.IsTerminal() || rec.ServiceDate.Before(model.DateOnly(notBefore)) {
			return nil
		}

		changed = true
		return r.setStatus(txn, rec, model.InstanceStatusCancelled)
	})
	return changed, err
}

func (r *InstanceStore) ExpireDeparted(ctx context.Context, departsBefore time.Time) (int64, error) {
	var count int64
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		var due []*instanceRecord
		err := r.each(txn, func(rec *instanceRecord) error {
			if !rec.Status.IsTerminal() && !rec.DepartsAt.After(departsBefore) {
				due = append(due, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, rec := range due {
			if err := r.setStatus(txn, rec, model.InstanceStatusExpired); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *InstanceStore) setStatus(txn *memdb.Txn, rec *instanceRecord, status model.InstanceStatus) error {
	rec.Status = status
	rec.UpdatedAt = r.s.clock.Now()
	return txn.Insert(tableInstances, rec)
}

// each обходит копии всех рейсов
func (r *InstanceStore) each(txn *memdb.Txn, fn func(rec *instanceRecord) error) error {
	it, err := txn.Get(tableInstances, "id")
	if err != nil {
		return err
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := *raw.(*instanceRecord)
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return nil
}
