package broadcast

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/promoimperio/broadcast_backend/models"
)

func TestNextFire(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name     string
		now      time.Time
		slots    []string
		expected time.Time
		index    int
	}{
		{
			name:     "next slot later today",
			now:      time.Date(2024, 1, 1, 8, 30, 0, 0, loc),
			slots:    []string{"08:00", "09:00", "10:00"},
			expected: time.Date(2024, 1, 1, 9, 0, 0, 0, loc),
			index:    1,
		},
		{
			name:     "all slots past rolls to tomorrow",
			now:      time.Date(2024, 1, 1, 23, 30, 0, 0, loc),
			slots:    []string{"08:00", "09:00"},
			expected: time.Date(2024, 1, 2, 8, 0, 0, 0, loc),
			index:    0,
		},
		{
			name:     "exact slot time fires tomorrow",
			now:      time.Date(2024, 1, 1, 9, 0, 0, 0, loc),
			slots:    []string{"09:00"},
			expected: time.Date(2024, 1, 2, 9, 0, 0, 0, loc),
			index:    0,
		},
		{
			name:     "unparsable slot is skipped",
			now:      time.Date(2024, 1, 1, 8, 0, 0, 0, loc),
			slots:    []string{"bogus", "09:00"},
			expected: time.Date(2024, 1, 1, 9, 0, 0, 0, loc),
			index:    1,
		},
	}

	for _, tc := range cases {
		fireAt, index, err := nextFire(tc.now, tc.slots)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !fireAt.Equal(tc.expected) || index != tc.index {
			t.Fatalf("%s: expected (%s, %d), got (%s, %d)", tc.name, tc.expected, tc.index, fireAt, index)
		}
	}
}

func TestNextFire_AllInvalid(t *testing.T) {
	if _, _, err := nextFire(time.Now(), []string{"nope", "25:00"}); err == nil {
		t.Fatalf("expected error when no slot time parses")
	}
}

func TestCatchUp_FiresSlotMissedDuringOverrun(t *testing.T) {
	client := &fakeMessagingClient{connected: true}
	d := newTestDispatcher(t, client, remoteWith("tenis_x.jpg"), []string{"g1@g.us"})

	second := models.Product{
		Title:         "Fone Y",
		AffiliateLink: "http://y",
		PriceTo:       "R$ 99,90",
		ImageHint:     "tenis_x.jpg",
	}
	s := &Scheduler{
		Dispatcher: d,
		Products:   []models.Product{product(), second},
		Slots:      []string{"09:00", "09:05"},
		Logger:     testLogger(),
		// Slot 0's fan-out ran long: it is 09:10 and slot 1's 09:05 never fired.
		Now: func() time.Time { return time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC) },
	}

	cursor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	newCursor := s.catchUp(context.Background(), cursor)

	expected := time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
	if !newCursor.Equal(expected) {
		t.Fatalf("expected cursor %s, got %s", expected, newCursor)
	}
	if len(client.sends) != 1 {
		t.Fatalf("expected exactly the missed slot to fire, got %d sends", len(client.sends))
	}
	if !strings.Contains(client.sends[0].Caption, "*Fone Y*") {
		t.Fatalf("expected slot 1's product, got caption:\n%s", client.sends[0].Caption)
	}
}

func TestCatchUp_NothingDueIsANoOp(t *testing.T) {
	client := &fakeMessagingClient{connected: true}
	d := newTestDispatcher(t, client, remoteWith("tenis_x.jpg"), []string{"g1@g.us"})

	s := &Scheduler{
		Dispatcher: d,
		Products:   []models.Product{product(), product()},
		Slots:      []string{"09:00", "11:00"},
		Logger:     testLogger(),
		Now:        func() time.Time { return time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC) },
	}

	cursor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if got := s.catchUp(context.Background(), cursor); !got.Equal(cursor) {
		t.Fatalf("cursor should be unchanged, got %s", got)
	}
	if len(client.sends) != 0 {
		t.Fatalf("no slot was due, got %d sends", len(client.sends))
	}
}
