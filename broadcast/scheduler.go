package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/sirupsen/logrus"
)

// Scheduler fires the dispatcher at the configured times of day. Slot index i
// maps to product i; one slot runs to completion before the next fires
// (single goroutine, no overlap).
type Scheduler struct {
	Dispatcher *Dispatcher
	Products   []models.Product
	Slots      []string
	Logger     *logrus.Logger

	// OnOutcome, when set, receives every slot outcome (report publishing).
	OnOutcome func(ctx context.Context, index int, outcome SlotOutcome)

	// Now is replaceable in tests.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run blocks until ctx is done. An in-flight slot finishes its fan-out before
// Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.Products) < len(s.Slots) {
		s.Logger.WithFields(logrus.Fields{"module": "broadcast"}).
			Warnf("fewer products (%d) than slots (%d)", len(s.Products), len(s.Slots))
	}
	s.Logger.WithFields(logrus.Fields{"module": "broadcast"}).
		Infof("schedule ready: %d slots -> %s", len(s.Slots), strings.Join(s.Slots, ", "))

	cursor := s.now()
	for {
		fireAt, index, err := nextFire(cursor, s.Slots)
		if err != nil {
			s.Logger.WithFields(logrus.Fields{"module": "broadcast"}).
				Error("no valid slot times: " + err.Error())
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(fireAt)):
		}

		s.runScheduled(ctx, index)
		cursor = s.catchUp(ctx, fireAt)
	}
}

// catchUp fires every slot whose occurrence fell between cursor and now: a
// long fan-out can run past a later slot's time, and that slot must still go
// out today instead of sliding to tomorrow. Late re-fires stay safe because
// the ledger already marks completed slots. Returns the occurrence of the
// last slot fired.
func (s *Scheduler) catchUp(ctx context.Context, cursor time.Time) time.Time {
	for ctx.Err() == nil {
		dueAt, index, err := nextFire(cursor, s.Slots)
		if err != nil || dueAt.After(s.now()) {
			break
		}
		s.Logger.WithFields(logrus.Fields{
			"module": "broadcast",
			"slot":   s.Slots[index],
		}).Warnf("slot %s became due during a previous run; firing late", s.Slots[index])
		s.runScheduled(ctx, index)
		cursor = dueAt
	}
	return cursor
}

// TriggerSlot runs one slot immediately (operator re-fire path).
func (s *Scheduler) TriggerSlot(ctx context.Context, index int) (SlotOutcome, error) {
	if index < 0 || index >= len(s.Slots) {
		return SlotOutcome{}, fmt.Errorf("slot index %d out of range (%d slots)", index, len(s.Slots))
	}
	if index >= len(s.Products) {
		return SlotOutcome{}, fmt.Errorf("no product loaded for slot index %d", index)
	}
	outcome := s.Dispatcher.RunSlot(ctx, s.Products[index], index, s.Slots[index])
	if s.OnOutcome != nil {
		s.OnOutcome(ctx, index, outcome)
	}
	return outcome, nil
}

// runScheduled isolates one slot run: a panic or stray error in a single slot
// must not take the scheduler down.
func (s *Scheduler) runScheduled(ctx context.Context, index int) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.WithFields(logrus.Fields{
				"module": "broadcast",
				"slot":   s.Slots[index],
			}).Errorf("slot run panicked: %v", r)
		}
	}()

	if index >= len(s.Products) {
		s.Logger.WithFields(logrus.Fields{"module": "broadcast"}).
			Warnf("no product defined for slot %s", s.Slots[index])
		return
	}

	outcome := s.Dispatcher.RunSlot(ctx, s.Products[index], index, s.Slots[index])
	if s.OnOutcome != nil {
		s.OnOutcome(ctx, index, outcome)
	}
}

// nextFire returns the soonest upcoming occurrence among the configured
// HH:mm slots and its index. A slot time already past today fires tomorrow.
func nextFire(now time.Time, slots []string) (time.Time, int, error) {
	best := time.Time{}
	bestIdx := -1
	for i, slot := range slots {
		t, err := time.ParseInLocation("15:04", slot, now.Location())
		if err != nil {
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if bestIdx == -1 || candidate.Before(best) {
			best = candidate
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return time.Time{}, 0, fmt.Errorf("none of %d slot times parsed", len(slots))
	}
	return best, bestIdx, nil
}
