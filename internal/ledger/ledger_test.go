package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/store"
)

func newLedger(t *testing.T) (*ledger.Ledger, *store.Memory, uint64) {
	t.Helper()
	mem := store.NewMemory()
	venue := mem.AddVenue(model.Venue{Name: "bar"})

	s := &model.Session{VenueID: venue, PatronKey: "k", Status: model.SessionActive}
	require.NoError(t, mem.CreateSession(context.Background(), s))

	led := ledger.New(mem, mem, broadcast.NewMemory(), locks.NewKeyed(), 5*time.Second)
	return led, mem, s.ID
}

// subtotalInvariant checks subtotal == Σ totalPrice over the live item set
// and total == subtotal + tip.
func subtotalInvariant(t *testing.T, mem *store.Memory, sessionID uint64) {
	t.Helper()
	ctx := context.Background()
	s, err := mem.SessionByID(ctx, sessionID)
	require.NoError(t, err)
	items, err := mem.ItemsBySession(ctx, sessionID)
	require.NoError(t, err)

	var sum uint32
	for _, it := range items {
		require.Equal(t, it.PriceCents*it.Quantity, it.TotalPriceCents)
		sum += it.TotalPriceCents
	}
	require.Equal(t, sum, s.SubtotalCents)
	require.Equal(t, s.SubtotalCents+s.TipCents, s.TotalCents)
}

func TestAddRemoveKeepsInvariant(t *testing.T) {
	led, mem, id := newLedger(t)
	ctx := context.Background()

	item, subtotal, err := led.AddItem(ctx, id, "IPA pint", 850, 2, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1700), item.TotalPriceCents)
	require.Equal(t, uint32(1700), subtotal)
	subtotalInvariant(t, mem, id)

	_, subtotal, err = led.AddItem(ctx, id, "burger", 1250, 1, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(2950), subtotal)
	subtotalInvariant(t, mem, id)

	subtotal, err = led.RemoveItem(ctx, id, item.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(1250), subtotal)
	subtotalInvariant(t, mem, id)
}

func TestAddItemValidation(t *testing.T) {
	led, _, id := newLedger(t)
	ctx := context.Background()

	_, _, err := led.AddItem(ctx, id, "", 100, 1, nil)
	require.ErrorIs(t, err, ledger.ErrInvalidItem)

	_, _, err = led.AddItem(ctx, id, "water", 0, 1, nil)
	require.ErrorIs(t, err, ledger.ErrInvalidItem)

	_, _, err = led.AddItem(ctx, id, "water", 100, 0, nil)
	require.ErrorIs(t, err, ledger.ErrInvalidItem)
}

func TestRemoveItemWrongSession(t *testing.T) {
	led, mem, id := newLedger(t)
	ctx := context.Background()

	other := &model.Session{VenueID: 1, PatronKey: "other", Status: model.SessionActive}
	require.NoError(t, mem.CreateSession(ctx, other))

	item, _, err := led.AddItem(ctx, id, "IPA pint", 850, 1, nil)
	require.NoError(t, err)

	// The item belongs to the first session; removing it through the other
	// session must not find it.
	_, err = led.RemoveItem(ctx, other.ID, item.ID)
	require.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestFinalSessionRejectsMutations(t *testing.T) {
	led, mem, id := newLedger(t)
	ctx := context.Background()

	s, err := mem.SessionByID(ctx, id)
	require.NoError(t, err)
	s.Status = model.SessionClosed
	require.NoError(t, mem.UpdateSession(ctx, s))

	_, _, err = led.AddItem(ctx, id, "IPA pint", 850, 1, nil)
	require.ErrorIs(t, err, ledger.ErrSessionFinal)

	_, err = led.SetTip(ctx, id, 500)
	require.ErrorIs(t, err, ledger.ErrSessionFinal)
}

func TestSetTipRecomputesTotal(t *testing.T) {
	led, mem, id := newLedger(t)
	ctx := context.Background()

	_, _, err := led.AddItem(ctx, id, "IPA pint", 850, 2, nil)
	require.NoError(t, err)

	total, err := led.SetTip(ctx, id, 300)
	require.NoError(t, err)
	require.Equal(t, uint32(2000), total)
	subtotalInvariant(t, mem, id)
}

func TestConcurrentAddsLoseNoUpdates(t *testing.T) {
	led, mem, id := newLedger(t)
	ctx := context.Background()

	// 100 concurrent $1.00 items must land on exactly $100.00.
	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _, err := led.AddItem(ctx, id, "soda", 100, 1, nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := mem.SessionByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint32(10000), s.SubtotalCents)
	subtotalInvariant(t, mem, id)
}
