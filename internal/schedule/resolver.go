// Package schedule decides which weekly slot is open for attendance and edits the week.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/apiclient"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
)

const (
	// Lead is how early before a slot starts attendance may be marked.
	Lead = 15 * time.Minute
	// Grace is how long after a slot ends attendance may still be marked.
	Grace = 30 * time.Minute
)

// Outcome names the branch the resolver took.
type Outcome string

const (
	OutcomeNoClasses  Outcome = "no_classes"
	OutcomeNoneOpen   Outcome = "none_open"
	OutcomeSelected   Outcome = "selected"
	OutcomeConflict   Outcome = "conflict"
	OutcomeFetchError Outcome = "fetch_error"
)

// Resolution is the result of resolving one point in time.
type Resolution struct {
	Outcome Outcome       `json:"outcome"`
	Notice  *model.Notice `json:"notice,omitempty"`
	// Selected is set only when exactly one slot is open.
	Selected *model.ScheduleSlot `json:"selected,omitempty"`
	// Candidates holds every open slot when more than one is.
	Candidates []model.ScheduleSlot `json:"candidates,omitempty"`
	Next       *model.ScheduleSlot  `json:"next,omitempty"`
}

// SlotSource lists slots from the attendance API.
type SlotSource interface {
	ListSchedules(ctx context.Context, f apiclient.ScheduleFilter) ([]model.ScheduleSlot, error)
}

// Resolver fetches the day's slots and evaluates them.
type Resolver struct {
	src    SlotSource
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(src SlotSource, logger *zap.Logger) *Resolver {
	return &Resolver{src: src, logger: logger}
}

// Resolve looks up the slots of at's weekday, narrowed to class/section when
// they are already chosen, and evaluates them at at's time of day. On a fetch
// failure the returned Resolution still carries an error notice.
func (r *Resolver) Resolve(ctx context.Context, at time.Time, class, section string) (Resolution, error) {
	day := model.DayName(at)
	slots, err := r.src.ListSchedules(ctx, apiclient.ScheduleFilter{Day: day, Class: class, Section: section})
	if err != nil {
		r.logger.Warn("fetch schedule failed", zap.String("day", day), zap.Error(err))
		metrics.ScheduleResolutions.WithLabelValues(string(OutcomeFetchError)).Inc()
		return Resolution{
			Outcome: OutcomeFetchError,
			Notice:  &model.Notice{Level: model.LevelError, Message: "Error fetching schedule information.", Retryable: true},
		}, err
	}

	res := Evaluate(slots, at)
	metrics.ScheduleResolutions.WithLabelValues(string(res.Outcome)).Inc()
	r.logger.Debug("schedule resolved",
		zap.String("day", day),
		zap.String("clock", model.ClockOf(at).String()),
		zap.Int("slots", len(slots)),
		zap.String("outcome", string(res.Outcome)))
	return res, nil
}

// Evaluate decides which of slots are open at at's time of day. A slot is open
// strictly inside (start-Lead, end+Grace). Slots with unreadable times are never open.
func Evaluate(slots []model.ScheduleSlot, at time.Time) Resolution {
	if len(slots) == 0 {
		return Resolution{
			Outcome: OutcomeNoClasses,
			Notice:  &model.Notice{Level: model.LevelInfo, Message: "No classes scheduled for this day."},
		}
	}

	now := model.ClockOf(at)
	var open []model.ScheduleSlot
	for _, s := range slots {
		if IsOpen(s, now) {
			open = append(open, s)
		}
	}

	switch len(open) {
	case 0:
		next := NextAfter(slots, now)
		res := Resolution{Outcome: OutcomeNoneOpen, Next: next}
		if next != nil {
			res.Notice = &model.Notice{
				Level: model.LevelWarning,
				Message: fmt.Sprintf("No classes right now. Next class: %s at %s (%s %s)",
					next.Subject, next.StartTime, next.Class, next.Section),
			}
		} else {
			res.Notice = &model.Notice{Level: model.LevelWarning, Message: "No more classes scheduled for today."}
		}
		return res
	case 1:
		s := open[0]
		return Resolution{
			Outcome:  OutcomeSelected,
			Selected: &s,
			Notice: &model.Notice{
				Level:   model.LevelSuccess,
				Message: fmt.Sprintf("Current class: %s (%s - %s)", s.Subject, s.StartTime, s.EndTime),
			},
		}
	default:
		return Resolution{Outcome: OutcomeConflict, Candidates: open}
	}
}

// Choose settles a conflict on slot.
func Choose(slot model.ScheduleSlot) Resolution {
	return Resolution{
		Outcome:  OutcomeSelected,
		Selected: &slot,
		Notice: &model.Notice{
			Level:   model.LevelSuccess,
			Message: fmt.Sprintf("Selected class: %s (%s - %s)", slot.Subject, slot.StartTime, slot.EndTime),
		},
	}
}

// IsOpen reports whether now falls strictly inside slot's eligibility window.
func IsOpen(slot model.ScheduleSlot, now model.ClockTime) bool {
	start, err := model.ParseClock(slot.StartTime)
	if err != nil {
		return false
	}
	end, err := model.ParseClock(slot.EndTime)
	if err != nil {
		return false
	}
	from := start - model.ClockTime(Lead/time.Minute)
	until := end + model.ClockTime(Grace/time.Minute)
	return now > from && now < until
}

// NextAfter returns the earliest-starting slot that starts after now, or nil.
// Ties keep the order of slots.
func NextAfter(slots []model.ScheduleSlot, now model.ClockTime) *model.ScheduleSlot {
	type startAt struct {
		slot  model.ScheduleSlot
		start model.ClockTime
	}
	var upcoming []startAt
	for _, s := range slots {
		start, err := model.ParseClock(s.StartTime)
		if err != nil || start <= now {
			continue
		}
		upcoming = append(upcoming, startAt{slot: s, start: start})
	}
	if len(upcoming) == 0 {
		return nil
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].start < upcoming[j].start })
	next := upcoming[0].slot
	return &next
}
