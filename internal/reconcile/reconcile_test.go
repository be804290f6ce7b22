package reconcile_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

func snap(host string, tree device.Device) device.Snapshot {
	return device.Snapshot{Host: host, Tree: tree}
}

func TestRun(t *testing.T) {
	t.Run("empty_pool", func(t *testing.T) {
		in := []device.Snapshot{
			snap("oss1", root(scsi("S1"))),
			snap("oss2", root(scsi("S2"))),
		}
		report, err := reconcile.Reconcile(in)
		require.NoError(t, err)
		assert.Zero(t, report.Donors)
		assert.Empty(t, report.Changed)
		assert.Empty(t, report.Failed)
		for i := range in {
			assert.Equal(t, in[i].Host, report.Snapshots[i].Host)
			assert.True(t, device.Equal(in[i].Tree, report.Snapshots[i].Tree))
		}
	})

	t.Run("propagates_to_sparse_host", func(t *testing.T) {
		host1 := root(scsi("S1", device.MdRaid{UUID: "U1"}))
		report, err := reconcile.Reconcile([]device.Snapshot{
			snap("oss1", host1),
			snap("oss2", root(scsi("S1"))),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Donors)
		assert.Equal(t, []string{"oss2"}, report.Changed)
		assert.True(t, device.Equal(host1, report.Snapshots[0].Tree))
		assert.True(t, device.Equal(host1, report.Snapshots[1].Tree))
	})

	t.Run("unrelated_hosts", func(t *testing.T) {
		host2 := root(scsi("S2"))
		report, err := reconcile.Reconcile([]device.Snapshot{
			snap("oss1", root(scsi("S1", device.MdRaid{UUID: "U1"}))),
			snap("oss2", host2),
		})
		require.NoError(t, err)
		assert.Empty(t, report.Changed)
		assert.True(t, device.Equal(host2, report.Snapshots[1].Tree))
	})

	t.Run("different_variants_do_not_cross", func(t *testing.T) {
		md := scsi("S1", device.MdRaid{UUID: "U1"})
		vg := device.Mpath{Serial: device.Ptr("S1")}.With(device.VolumeGroup{Name: "vg0"})

		report, err := reconcile.Reconcile([]device.Snapshot{
			snap("oss1", root(md)),
			snap("oss2", root(vg)),
			snap("oss3", root(scsi("S1"))),
		})
		require.NoError(t, err)
		assert.True(t, device.Equal(root(md), report.Snapshots[0].Tree))
		assert.True(t, device.Equal(root(vg), report.Snapshots[1].Tree))
		assert.True(t, device.Equal(root(md), report.Snapshots[2].Tree))
		assert.Equal(t, []string{"oss3"}, report.Changed)
	})

	t.Run("pool_order_decides", func(t *testing.T) {
		a := scsi("S1", device.MdRaid{UUID: "A"})
		b := scsi("S1", device.MdRaid{UUID: "B"})
		report, err := reconcile.Reconcile([]device.Snapshot{
			snap("oss1", root(a)),
			snap("oss2", root(b)),
		})
		require.NoError(t, err)
		for _, s := range report.Snapshots {
			assert.True(t, device.Equal(root(b), s.Tree), s.Host)
		}
	})

	t.Run("second_pass_is_stable", func(t *testing.T) {
		in := []device.Snapshot{
			snap("oss1", root(scsi("S1", device.MdRaid{UUID: "U1"}), scsi("S2"))),
			snap("oss2", root(scsi("S1"), scsi("S2", device.Zpool{GUID: "9"}))),
			snap("mds1", root(scsi("S2"))),
		}
		first, err := reconcile.Reconcile(in)
		require.NoError(t, err)
		second, err := reconcile.Reconcile(first.Snapshots)
		require.NoError(t, err)
		assert.Empty(t, second.Changed)
		for i := range in {
			assert.True(t, device.Equal(first.Snapshots[i].Tree, second.Snapshots[i].Tree))
		}
	})

	t.Run("duplicate_host", func(t *testing.T) {
		_, err := reconcile.Reconcile([]device.Snapshot{
			snap("oss1", root()),
			snap("oss1", root()),
		})
		assert.ErrorIs(t, err, reconcile.ErrDuplicateHost)
	})

	t.Run("malformed_host_is_isolated", func(t *testing.T) {
		bad := device.MdRaid{UUID: "U9"}
		nested := root(scsi("S1", root()))
		donor := scsi("S1", device.MdRaid{UUID: "U1"})

		report, err := reconcile.Reconcile([]device.Snapshot{
			snap("bad", bad),
			snap("oss1", root(donor)),
			snap("nested", nested),
			snap("oss2", root(scsi("S1"))),
		})
		require.NoError(t, err)
		require.Len(t, report.Failed, 2)
		assert.Equal(t, "bad", report.Failed[0].Host)
		assert.Equal(t, "nested", report.Failed[1].Host)
		for _, f := range report.Failed {
			assert.ErrorIs(t, f, device.ErrInvariant)
		}

		assert.True(t, device.Equal(bad, report.Snapshots[0].Tree))
		assert.True(t, device.Equal(nested, report.Snapshots[2].Tree))
		assert.True(t, device.Equal(root(donor), report.Snapshots[3].Tree))
		assert.Equal(t, []string{"oss2"}, report.Changed)
	})

	t.Run("empty_batch", func(t *testing.T) {
		report, err := reconcile.Reconcile(nil)
		require.NoError(t, err)
		assert.Empty(t, report.Snapshots)
	})
}

func TestRunPreservesOrder(t *testing.T) {
	shared := scsi("SHARED", device.Zpool{GUID: "1", Name: "tank"})

	var in []device.Snapshot
	for i := range 40 {
		tree := root(scsi("SHARED"), scsi(fmt.Sprintf("LOCAL%d", i)))
		if i == 17 {
			tree = root(shared, scsi(fmt.Sprintf("LOCAL%d", i)))
		}
		in = append(in, snap(fmt.Sprintf("oss%02d", i), tree))
	}

	for _, workers := range []int{1, 4, 64} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			report, err := reconcile.New(reconcile.WithWorkers(workers)).Run(in)
			require.NoError(t, err)
			require.Len(t, report.Snapshots, len(in))
			assert.Len(t, report.Changed, len(in)-1)
			for i, s := range report.Snapshots {
				assert.Equal(t, in[i].Host, s.Host)
				assert.True(t, device.Equal(
					root(shared, scsi(fmt.Sprintf("LOCAL%d", i))), s.Tree), s.Host)
			}
		})
	}
}

func TestRunLogs(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	sink := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 2})

	r := reconcile.New(reconcile.WithLogger(logger.NewLoggerWrap(sink)))
	_, err := r.Run([]device.Snapshot{
		snap("oss1", root(scsi("S1", device.MdRaid{UUID: "U1"}))),
		snap("bad", device.Zpool{GUID: "1"}),
	})
	require.NoError(t, err)

	out := strings.Join(lines, "\n")
	assert.Contains(t, out, "Collected parents")
	assert.Contains(t, out, `"host"="oss1"`)
	assert.Contains(t, out, "Skipping host")
}
