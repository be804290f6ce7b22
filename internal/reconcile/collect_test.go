package reconcile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

func scsi(serial string, children ...device.Device) device.ScsiDevice {
	return device.ScsiDevice{Serial: device.Ptr(serial)}.With(children...)
}

func root(children ...device.Device) device.Root {
	return device.Root{}.With(children...)
}

func TestCollectVirtualParents(t *testing.T) {
	t.Run("emits_parent_with_children", func(t *testing.T) {
		parent := scsi("S1", device.MdRaid{UUID: "U1"})
		got, err := reconcile.CollectVirtualParents(root(parent))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, device.Equal(parent, got[0]))
	})

	t.Run("no_virtual_devices", func(t *testing.T) {
		got, err := reconcile.CollectVirtualParents(root(
			scsi("S1", device.Partition{Serial: device.Ptr("S1-1")}),
			device.Mpath{Serial: device.Ptr("M1")},
		))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("stops_at_first_virtual_level", func(t *testing.T) {
		zpool := device.Zpool{GUID: "1", Name: "tank"}.With(device.Dataset{GUID: "2", Name: "tank/a"})
		parent := scsi("S1", zpool)
		got, err := reconcile.CollectVirtualParents(root(parent))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, device.KindScsiDevice, got[0].Kind())
	})

	t.Run("keeps_duplicates", func(t *testing.T) {
		parent := scsi("S1", device.MdRaid{UUID: "U1"}, device.VolumeGroup{Name: "vg0"})
		got, err := reconcile.CollectVirtualParents(root(parent))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, device.Equal(got[0], got[1]))
	})

	t.Run("through_physical_layers", func(t *testing.T) {
		part := device.Partition{Serial: device.Ptr("M1-1")}.With(device.LogicalVolume{UUID: "L1"})
		got, err := reconcile.CollectVirtualParents(root(
			device.Mpath{Serial: device.Ptr("M1")}.With(part),
		))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, device.Equal(part, got[0]))
	})

	t.Run("virtual_under_root", func(t *testing.T) {
		tree := root(device.Zpool{GUID: "1"})
		got, err := reconcile.CollectVirtualParents(tree)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, device.Equal(tree, got[0]))
	})

	t.Run("virtual_entry_point", func(t *testing.T) {
		for _, d := range []device.Device{device.MdRaid{UUID: "U1"}, device.Dataset{GUID: "1"}} {
			_, err := reconcile.CollectVirtualParents(d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, reconcile.ErrNoAncestor))
			assert.True(t, errors.Is(err, device.ErrInvariant))
		}
	})
}
