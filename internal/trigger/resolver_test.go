package trigger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openvenue/bartab/internal/model"
	"github.com/openvenue/bartab/internal/proximity"
	"github.com/openvenue/bartab/internal/trigger"
)

// staticZones returns a fixed, pre-ordered zone list the way the registry
// would (priority DESC, name ASC).
type staticZones []model.Zone

func (s staticZones) ZonesFor(uint64) []model.Zone { return s }

func TestPriorityTieBreak(t *testing.T) {
	// Zone B (priority 5, activate_tab) must beat zone A (priority 3,
	// notification) for a NEAR transition.
	r := trigger.NewResolver(staticZones{
		{ID: 2, Name: "B", Priority: 5, TriggerAction: model.ActionActivateTab, Type: model.ZoneEntry},
		{ID: 1, Name: "A", Priority: 3, TriggerAction: model.ActionNotification, Type: model.ZoneBar},
	})

	d := r.Resolve(7, 42, proximity.Near)
	require.False(t, d.None())
	require.Equal(t, uint64(2), d.ZoneID)
	require.Equal(t, model.ActionActivateTab, d.Action)
	require.Equal(t, uint64(7), d.SessionID)
}

func TestFarSelectsCloseTab(t *testing.T) {
	// A FAR transition skips activate/notification zones even when they
	// outrank the close_tab zone.
	r := trigger.NewResolver(staticZones{
		{ID: 1, Name: "bar", Priority: 9, TriggerAction: model.ActionActivateTab},
		{ID: 2, Name: "exit", Priority: 1, TriggerAction: model.ActionCloseTab, Type: model.ZoneExit},
	})

	d := r.Resolve(7, 42, proximity.Far)
	require.Equal(t, uint64(2), d.ZoneID)
	require.Equal(t, model.ActionCloseTab, d.Action)
}

func TestOnlyOneDecisionPerTransition(t *testing.T) {
	// Two qualifying zones: only the higher-priority one fires.
	r := trigger.NewResolver(staticZones{
		{ID: 1, Name: "door", Priority: 8, TriggerAction: model.ActionCloseTab},
		{ID: 2, Name: "hall", Priority: 2, TriggerAction: model.ActionCloseTab},
	})

	d := r.Resolve(7, 42, proximity.Far)
	require.Equal(t, uint64(1), d.ZoneID)
}

func TestNoQualifyingZoneIsNone(t *testing.T) {
	r := trigger.NewResolver(staticZones{
		{ID: 1, Name: "quiet", Priority: 5, TriggerAction: model.ActionNone},
	})

	require.True(t, r.Resolve(7, 42, proximity.Near).None())
	require.True(t, r.Resolve(7, 42, proximity.Far).None())

	empty := trigger.NewResolver(staticZones{})
	require.True(t, empty.Resolve(7, 42, proximity.Near).None())
}
