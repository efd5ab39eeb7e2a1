package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"timesheet/internal/model"
)

// Keys under which the selection state is stored, one scalar per field.
const (
	KeyLastCheckedID        = "last_checked_employee_id"
	KeyLastCheckedName      = "last_checked_employee_name"
	KeyLastCheckedTimestamp = "last_checked_employee_timestamp"
	KeySelectedID           = "selected_employee_id"
	KeySelectedName         = "selected_employee_name"
)

// Preferences reads and writes the selection state on top of a Store.
type Preferences struct {
	store Store
	log   logrus.FieldLogger
}

// NewPreferences wraps store.
func NewPreferences(store Store, log logrus.FieldLogger) *Preferences {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Preferences{store: store, log: log}
}

// SelectedEmployee returns the persisted selection, or nil when either of its
// fields is missing.
func (p *Preferences) SelectedEmployee(ctx context.Context) (*model.Employee, error) {
	return p.employee(ctx, KeySelectedID, KeySelectedName)
}

// SaveSelectedEmployee persists e, or removes the selection when e is nil.
func (p *Preferences) SaveSelectedEmployee(ctx context.Context, e *model.Employee) error {
	changes := map[string]*string{KeySelectedID: nil, KeySelectedName: nil}
	if e != nil {
		changes[KeySelectedID] = ptr(strconv.Itoa(e.ID))
		changes[KeySelectedName] = ptr(e.FullName)
	}
	return p.store.Edit(ctx, changes)
}

// LastCheckIn returns the persisted check-in record. The record exists when
// its timestamp does; the employee is attached when both its fields exist.
func (p *Preferences) LastCheckIn(ctx context.Context) (*model.LastCheckIn, error) {
	ts, ok, err := p.store.Get(ctx, KeyLastCheckedTimestamp)
	if err != nil || !ok {
		return nil, err
	}
	e, err := p.employee(ctx, KeyLastCheckedID, KeyLastCheckedName)
	if err != nil {
		return nil, err
	}
	return &model.LastCheckIn{Employee: e, Timestamp: ts}, nil
}

// SaveLastCheckIn persists rec, or removes every field when rec is nil.
func (p *Preferences) SaveLastCheckIn(ctx context.Context, rec *model.LastCheckIn) error {
	changes := map[string]*string{
		KeyLastCheckedID:        nil,
		KeyLastCheckedName:      nil,
		KeyLastCheckedTimestamp: nil,
	}
	if rec != nil {
		changes[KeyLastCheckedTimestamp] = ptr(rec.Timestamp)
		if rec.Employee != nil {
			changes[KeyLastCheckedID] = ptr(strconv.Itoa(rec.Employee.ID))
			changes[KeyLastCheckedName] = ptr(rec.Employee.FullName)
		}
	}
	return p.store.Edit(ctx, changes)
}

// WatchSelectedEmployee emits the current selection and then the stored
// value after every edit that touches it.
func (p *Preferences) WatchSelectedEmployee(ctx context.Context) (<-chan *model.Employee, error) {
	return watch(ctx, p, []string{KeySelectedID, KeySelectedName}, p.SelectedEmployee)
}

// WatchLastCheckIn is WatchSelectedEmployee for the check-in record.
func (p *Preferences) WatchLastCheckIn(ctx context.Context) (<-chan *model.LastCheckIn, error) {
	return watch(ctx, p, []string{KeyLastCheckedID, KeyLastCheckedName, KeyLastCheckedTimestamp}, p.LastCheckIn)
}

func watch[T any](ctx context.Context, p *Preferences, keys []string, read func(context.Context) (T, error)) (<-chan T, error) {
	changes, err := p.store.Watch(ctx)
	if err != nil {
		return nil, err
	}
	first, err := read(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan T, 1)
	out <- first
	go func() {
		defer close(out)
		for change := range changes {
			if !change.Touches(keys...) {
				continue
			}
			v, err := read(ctx)
			if err != nil {
				p.log.WithError(err).WithField("keys", keys).Warn("reading preferences after change")
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Preferences) employee(ctx context.Context, idKey, nameKey string) (*model.Employee, error) {
	rawID, ok, err := p.store.Get(ctx, idKey)
	if err != nil || !ok {
		return nil, err
	}
	name, ok, err := p.store.Get(ctx, nameKey)
	if err != nil || !ok {
		return nil, err
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, fmt.Errorf("prefs: malformed %s %q: %w", idKey, rawID, err)
	}
	return &model.Employee{ID: id, FullName: name}, nil
}

func ptr(s string) *string { return &s }
