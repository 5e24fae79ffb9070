package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/hashicorp/go-memdb"
)

type TemplateStore struct {
	s *Store
}

func getTemplate(txn *memdb.Txn, id int64) (*model.ScheduleTemplate, error) {
	raw, err := txn.First(tableTemplates, "id", id)
	if err != nil || raw == nil {
		return nil, err
	}
	t := *raw.(*model.ScheduleTemplate)
	return &t, nil
}

func (r *TemplateStore) Create(ctx context.Context, template *model.ScheduleTemplate) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		now := r.s.clock.Now()
		template.ID = r.s.newID()
		template.CreatedAt = now
		template.UpdatedAt = now

		stored := *template
		return txn.Insert(tableTemplates, &stored)
	})
}

func (r *TemplateStore) GetByID(ctx context.Context, id int64) (*model.ScheduleTemplate, error) {
	var result *model.ScheduleTemplate
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		var err error
		result, err = getTemplate(txn, id)
		return err
	})
	return result, err
}

func (r *TemplateStore) List(ctx context.Context) ([]*model.ScheduleTemplate, error) {
	return r.list(ctx, false)
}

func (r *TemplateStore) GetAllActive(ctx context.Context) ([]*model.ScheduleTemplate, error) {
	return r.list(ctx, true)
}

func (r *TemplateStore) Update(ctx context.Context, template *model.ScheduleTemplate) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		prev, err := getTemplate(txn, template.ID)
		if err != nil {
			return err
		}
		if prev == nil {
			return fmt.Errorf("schedule template %d not found", template.ID)
		}

		template.CreatedAt = prev.CreatedAt
		template.UpdatedAt = r.s.clock.Now()

		stored := *template
		return txn.Insert(tableTemplates, &stored)
	})
}

func (r *TemplateStore) Deactivate(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		next, err := getTemplate(txn, id)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("schedule template %d not found", id)
		}

		next.IsActive = false
		next.UpdatedAt = r.s.clock.Now()
		return txn.Insert(tableTemplates, next)
	})
}

func (r *TemplateStore) list(ctx context.Context, activeOnly bool) ([]*model.ScheduleTemplate, error) {
	var result []*model.ScheduleTemplate
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tableTemplates, "id")
		if err != nil {
			return err
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			t := *raw.(*model.ScheduleTemplate)
			if activeOnly && !t.IsActive {
				continue
			}
			result = append(result, &t)
		}
		return nil
	})

	sort.Slice(result, func(a, b int) bool {
		x, y := result[a], result[b]
		if x.Hotel != y.Hotel {
			return x.Hotel < y.Hotel
		}
		if x.DepartureHour != y.DepartureHour {
			return x.DepartureHour < y.DepartureHour
		}
		if x.DepartureMinute != y.DepartureMinute {
			return x.DepartureMinute < y.DepartureMinute
		}
		return x.ID < y.ID
	})
	return result, err
}
