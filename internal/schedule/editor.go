package schedule

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"rollcall/internal/apiclient"
	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// SlotStore is the slot CRUD surface of the attendance API.
type SlotStore interface {
	SlotSource
	CreateSchedule(ctx context.Context, s model.ScheduleSlot) (model.ScheduleSlot, error)
	UpdateSchedule(ctx context.Context, id string, s model.ScheduleSlot) (model.ScheduleSlot, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// DayGroup is one weekday of the week view.
type DayGroup struct {
	Day   string               `json:"day"`
	Slots []model.ScheduleSlot `json:"slots"`
}

// Editor lists and changes the weekly schedule. Overlapping slots are accepted.
type Editor struct {
	api    SlotStore
	logger *zap.Logger
}

// NewEditor creates an editor.
func NewEditor(api SlotStore, logger *zap.Logger) *Editor {
	return &Editor{api: api, logger: logger}
}

// Week returns every slot grouped by weekday, days in week order, slots by start time.
// Days without slots are present with an empty list.
func (e *Editor) Week(ctx context.Context) ([]DayGroup, error) {
	slots, err := e.api.ListSchedules(ctx, apiclient.ScheduleFilter{})
	if err != nil {
		return nil, err
	}
	return GroupByDay(slots), nil
}

// Save creates slot when it has no id and replaces it otherwise.
func (e *Editor) Save(ctx context.Context, slot model.ScheduleSlot) (model.ScheduleSlot, error) {
	if err := model.Validate(slot); err != nil {
		return model.ScheduleSlot{}, apperr.Validation("save schedule", err.Error())
	}
	var (
		saved model.ScheduleSlot
		err   error
	)
	if slot.ID == "" {
		saved, err = e.api.CreateSchedule(ctx, slot)
	} else {
		saved, err = e.api.UpdateSchedule(ctx, slot.ID, slot)
	}
	if err != nil {
		e.logger.Warn("save schedule failed", zap.String("id", slot.ID), zap.Error(err))
		return model.ScheduleSlot{}, err
	}
	return saved, nil
}

// Delete removes the slot with id.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("delete schedule", "schedule id is required")
	}
	if err := e.api.DeleteSchedule(ctx, id); err != nil {
		e.logger.Warn("delete schedule failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// SortSlots orders slots by week order, then by start time.
func SortSlots(slots []model.ScheduleSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := model.DayIndex(slots[i].Day), model.DayIndex(slots[j].Day)
		if di != dj {
			return di < dj
		}
		return startsBefore(slots[i].StartTime, slots[j].StartTime)
	})
}

// startsBefore compares start times as times of day. Unparseable values
// fall back to string order after every valid one.
func startsBefore(a, b string) bool {
	ca, errA := model.ParseClock(a)
	cb, errB := model.ParseClock(b)
	switch {
	case errA == nil && errB == nil:
		return ca < cb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// GroupByDay sorts slots and buckets them per weekday. Slots with an unknown day are dropped.
func GroupByDay(slots []model.ScheduleSlot) []DayGroup {
	SortSlots(slots)
	groups := make([]DayGroup, len(model.WeekOrder))
	for i, day := range model.WeekOrder {
		groups[i] = DayGroup{Day: day, Slots: []model.ScheduleSlot{}}
	}
	for _, s := range slots {
		if i := model.DayIndex(s.Day); i < len(groups) {
			groups[i].Slots = append(groups[i].Slots, s)
		}
	}
	return groups
}
