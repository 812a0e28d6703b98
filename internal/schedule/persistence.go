package schedule

import (
	"context"
	"fmt"

	"smena/internal/model"
)

// Store persists the per-weekday schedule rows. Implemented by the local
// sqlite store and by the platform HTTP client. Rows are always exchanged as
// a full set of 7; partial updates are not supported by the interface.
type Store interface {
	LoadRows(ctx context.Context) ([]model.ScheduleRow, error)
	SaveRows(ctx context.Context, rows []model.ScheduleRow) error
}

// Adapter translates between the weekly template and the store's row shape.
type Adapter struct {
	store Store
}

func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

// Load fetches the rows and rebuilds the template; missing days come back
// disabled. Transport failures wrap model.ErrPersistence so the caller can
// keep its last good in-memory template.
func (a *Adapter) Load(ctx context.Context) (model.WeekTemplate, error) {
	rows, err := a.store.LoadRows(ctx)
	if err != nil {
		return model.WeekTemplate{}, fmt.Errorf("%w: load rows: %v", model.ErrPersistence, err)
	}
	return model.TemplateFromRows(rows), nil
}

// Save writes the template through as exactly 7 rows.
func (a *Adapter) Save(ctx context.Context, tmpl model.WeekTemplate) error {
	if err := a.store.SaveRows(ctx, tmpl.ToRows()); err != nil {
		return fmt.Errorf("%w: save rows: %v", model.ErrPersistence, err)
	}
	return nil
}
