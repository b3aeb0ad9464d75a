package broadcast

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/promoimperio/broadcast_backend/assets"
	"github.com/promoimperio/broadcast_backend/ledger"
	"github.com/promoimperio/broadcast_backend/messaging"
	"github.com/promoimperio/broadcast_backend/models"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateAlreadySent    State = "AlreadySent"
	StateInvalidProduct State = "InvalidProduct"
	StateAssetMissing   State = "AssetMissing"
	StateCompleted      State = "Completed"
)

// DestinationOutcome is the per-destination result of one fan-out. Ephemeral:
// it lives in the slot summary and the log line, nowhere else.
type DestinationOutcome struct {
	Group  string `json:"group"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type SlotOutcome struct {
	State    State                `json:"state"`
	Key      string               `json:"key"`
	SlotTime string               `json:"slot_time"`
	Product  string               `json:"product"`
	Outcomes []DestinationOutcome `json:"outcomes,omitempty"`
}

// slotLockTTL bounds the cross-instance lease on one slot key. Must outlast a
// full fan-out (destinations x pause x send timeout).
const slotLockTTL = 5 * time.Minute

// Dispatcher runs one scheduled slot end to end: idempotency check,
// validation, asset resolution, per-destination fan-out, ledger commit.
type Dispatcher struct {
	Ledger       ledger.Store
	Resolver     *assets.Resolver
	Client       messaging.Client
	Destinations []string
	Pause        time.Duration
	Simulate     bool
	Logger       *logrus.Logger

	// Locker is optional; when set, the check-then-append section also takes
	// a Redis lease so two agent instances cannot double-commit one slot.
	Locker *redislock.Client

	// Now is replaceable in tests.
	Now func() time.Time

	mu        sync.Mutex
	slotLocks map[string]*sync.Mutex
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// lockFor returns the in-process mutex for one slot key. It serializes
// check-then-append so a double-fired trigger cannot pass the idempotency
// check twice before either commits.
func (d *Dispatcher) lockFor(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.slotLocks == nil {
		d.slotLocks = map[string]*sync.Mutex{}
	}
	if _, ok := d.slotLocks[key]; !ok {
		d.slotLocks[key] = &sync.Mutex{}
	}
	return d.slotLocks[key]
}

// RunSlot dispatches one product for one slot. States are strictly
// sequential; nothing inside retries (the next calendar day is the retry).
func (d *Dispatcher) RunSlot(ctx context.Context, product models.Product, index int, slotTime string) SlotOutcome {
	key := models.SentKey(product.Title, slotTime, d.now())
	outcome := SlotOutcome{Key: key, SlotTime: slotTime, Product: product.Title}

	lk := d.lockFor(key)
	lk.Lock()
	defer lk.Unlock()

	if d.Locker != nil {
		lease, err := d.Locker.Obtain(ctx, "slot:"+key, slotLockTTL, nil)
		if err == redislock.ErrNotObtained {
			d.Logger.WithFields(logrus.Fields{
				"module": "broadcast",
				"slot":   slotTime,
				"key":    key,
			}).Warn("another instance holds the slot lock; skipping")
			outcome.State = StateAlreadySent
			return outcome
		}
		if err == nil {
			defer lease.Release(ctx)
		}
		// Redis being down must not stop dispatch; the in-process lock still
		// guards the single-instance case.
	}

	sent, err := d.Ledger.IsSent(ctx, key)
	if err != nil {
		// Fail-open: a broken ledger read never blocks sending.
		d.Logger.WithFields(logrus.Fields{
			"module": "broadcast",
			"key":    key,
		}).Error("ledger read failed: " + err.Error())
	}
	if sent {
		d.Logger.WithFields(logrus.Fields{
			"module":  "broadcast",
			"slot":    slotTime,
			"product": product.Title,
		}).Warnf("product %d already marked as sent for slot %s today", index, slotTime)
		outcome.State = StateAlreadySent
		return outcome
	}

	if err := product.Validate(); err != nil {
		d.Logger.WithFields(logrus.Fields{
			"module": "broadcast",
			"slot":   slotTime,
		}).Errorf("product %d is invalid: %v", index, err)
		outcome.State = StateInvalidProduct
		return outcome
	}

	img := d.Resolver.Resolve(ctx, product)
	if img == nil {
		d.Logger.WithFields(logrus.Fields{
			"module":  "broadcast",
			"slot":    slotTime,
			"product": product.Title,
		}).Error("no image found for product (remote/local)")
		outcome.State = StateAssetMissing
		return outcome
	}

	message := FormatMessage(product)
	outcome.Outcomes = d.fanOut(ctx, product, index, slotTime, img, message)

	// The slot is committed after fan-out no matter how the individual
	// destinations fared; only simulate mode skips the ledger.
	if !d.Simulate {
		if err := d.Ledger.Record(ctx, key); err != nil {
			d.Logger.WithFields(logrus.Fields{
				"module": "broadcast",
				"key":    key,
			}).Error("ledger commit failed: " + err.Error())
		}
	}

	outcome.State = StateCompleted
	d.logSummary(index, slotTime, product.Title, outcome.Outcomes)
	return outcome
}

// fanOut attempts delivery to every destination in order. Sequential on
// purpose: the messaging backend throttles bursts, so a fixed pause follows
// every attempt. One destination's failure never aborts the rest.
func (d *Dispatcher) fanOut(ctx context.Context, product models.Product, index int, slotTime string, img *assets.ImageRef, message string) []DestinationOutcome {
	image := img.URL
	if img.Kind == assets.ImageKindLocal {
		prepared, err := assets.PrepareLocalImage(img.Path)
		if err != nil {
			d.Logger.WithFields(logrus.Fields{
				"module": "broadcast",
				"path":   img.Path,
			}).Warn("failed to prepare local image; sending original: " + err.Error())
			prepared = img.Path
		}
		if prepared != img.Path {
			// Downscaled copy is a temp file; drop it once the fan-out is done.
			defer os.Remove(prepared)
		}
		image = prepared
	}

	var outcomes []DestinationOutcome
	for _, group := range d.Destinations {
		if !d.Client.IsConnected(ctx) {
			outcomes = append(outcomes, DestinationOutcome{Group: group, Reason: "disconnected"})
			d.Logger.WithFields(logrus.Fields{
				"module":      "broadcast",
				"destination": group,
				"product":     product.Title,
			}).Error("client disconnected before send")
			d.pause(ctx)
			continue
		}

		if d.Simulate {
			d.Logger.WithFields(logrus.Fields{
				"module":      "broadcast",
				"destination": group,
				"product":     product.Title,
				"image":       image,
			}).Infof("[simulate] send for slot %s skipped", slotTime)
			d.pause(ctx)
			continue
		}

		if err := d.Client.SendImage(ctx, group, image, img.Name, message); err != nil {
			outcomes = append(outcomes, DestinationOutcome{Group: group, Reason: err.Error()})
			d.Logger.WithFields(logrus.Fields{
				"module":      "broadcast",
				"destination": group,
				"product":     product.Title,
			}).Error("send failed: " + err.Error())
		} else {
			outcomes = append(outcomes, DestinationOutcome{Group: group, OK: true})
			d.Logger.WithFields(logrus.Fields{
				"module":      "broadcast",
				"destination": group,
				"product":     product.Title,
				"slot":        slotTime,
				"imageKind":   string(img.Kind),
			}).Debugf("product %d delivered", index)
		}
		d.pause(ctx)
	}
	return outcomes
}

func (d *Dispatcher) pause(ctx context.Context) {
	if d.Pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d.Pause):
	}
}

func (d *Dispatcher) logSummary(index int, slotTime string, title string, outcomes []DestinationOutcome) {
	var okGroups []string
	failed := 0
	for _, o := range outcomes {
		if o.OK {
			okGroups = append(okGroups, o.Group)
		} else {
			failed++
		}
	}

	summary := fmt.Sprintf("slot %s | #%d %q: ok=%d", slotTime, index, title, len(okGroups))
	if len(okGroups) > 0 {
		summary += " (" + strings.Join(okGroups, ", ") + ")"
	}
	if failed > 0 {
		summary += fmt.Sprintf(" | failed=%d", failed)
	}
	d.Logger.WithFields(logrus.Fields{"module": "broadcast"}).Info(summary)
}
