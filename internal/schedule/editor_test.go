package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rollcall/internal/apiclient"
	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

type fakeSlotStore struct {
	fakeSlots
	created []model.ScheduleSlot
	updated map[string]model.ScheduleSlot
	deleted []string
}

func (f *fakeSlotStore) CreateSchedule(_ context.Context, s model.ScheduleSlot) (model.ScheduleSlot, error) {
	s.ID = "new"
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSlotStore) UpdateSchedule(_ context.Context, id string, s model.ScheduleSlot) (model.ScheduleSlot, error) {
	if f.updated == nil {
		f.updated = map[string]model.ScheduleSlot{}
	}
	f.updated[id] = s
	return s, nil
}

func (f *fakeSlotStore) DeleteSchedule(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestWeekGroupsAndSorts(t *testing.T) {
	tue := model.ScheduleSlot{ID: "T", Day: "Tuesday", StartTime: "08:00", EndTime: "09:00"}
	store := &fakeSlotStore{fakeSlots: fakeSlots{slots: []model.ScheduleSlot{historyC, tue, scienceB, mathA}}}
	e := NewEditor(store, zap.NewNop())

	week, err := e.Week(context.Background())
	require.NoError(t, err)
	require.Len(t, week, 7)

	assert.Equal(t, "Monday", week[0].Day)
	var ids []string
	for _, s := range week[0].Slots {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, "Tuesday", week[1].Day)
	assert.Len(t, week[1].Slots, 1)
	assert.Equal(t, "Sunday", week[6].Day)
	assert.NotNil(t, week[6].Slots)
	assert.Empty(t, week[6].Slots)
	assert.Equal(t, apiclient.ScheduleFilter{}, store.filter)
}

func TestSaveCreatesOrUpdates(t *testing.T) {
	store := &fakeSlotStore{}
	e := NewEditor(store, zap.NewNop())

	slot := mathA
	slot.ID = ""
	saved, err := e.Save(context.Background(), slot)
	require.NoError(t, err)
	assert.Equal(t, "new", saved.ID)
	assert.Len(t, store.created, 1)

	_, err = e.Save(context.Background(), mathA)
	require.NoError(t, err)
	assert.Contains(t, store.updated, "A")
}

func TestSaveAcceptsOverlappingSlots(t *testing.T) {
	store := &fakeSlotStore{fakeSlots: fakeSlots{slots: []model.ScheduleSlot{mathA}}}
	e := NewEditor(store, zap.NewNop())

	overlap := mathA
	overlap.ID = ""
	overlap.Subject = "Team-taught Math"
	_, err := e.Save(context.Background(), overlap)
	assert.NoError(t, err)
}

func TestSaveRejectsMissingFields(t *testing.T) {
	store := &fakeSlotStore{}
	e := NewEditor(store, zap.NewNop())

	_, err := e.Save(context.Background(), model.ScheduleSlot{Day: "Monday"})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, store.created)
}

func TestDelete(t *testing.T) {
	store := &fakeSlotStore{}
	e := NewEditor(store, zap.NewNop())

	require.NoError(t, e.Delete(context.Background(), "A"))
	assert.Equal(t, []string{"A"}, store.deleted)
	assert.True(t, apperr.IsValidation(e.Delete(context.Background(), "")))
}

func TestSortSlotsOrdersByTimeOfDay(t *testing.T) {
	slots := []model.ScheduleSlot{
		{ID: "late", Day: "Monday", StartTime: "10:00"},
		{ID: "bad", Day: "Monday", StartTime: "noon"},
		{ID: "early", Day: "Monday", StartTime: "9:00"},
		{ID: "mid", Day: "Monday", StartTime: "09:30"},
	}
	SortSlots(slots)

	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"early", "mid", "late", "bad"}, ids)
}
