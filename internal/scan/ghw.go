package scan

import (
	"github.com/jaypipes/ghw"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
)

// BlockInfoFunc lists the host's disks.
type BlockInfoFunc func() (*ghw.BlockInfo, error)

func ghwBlockInfo() (*ghw.BlockInfo, error) {
	return ghw.Block()
}

// ghw reports unknown attributes with this placeholder.
const ghwUnknown = "unknown"

func known(s string) string {
	if s == ghwUnknown {
		return ""
	}
	return s
}

// treeFromBlockInfo builds a tree of disks and partitions only; ghw knows
// nothing of RAID, LVM or ZFS.
func treeFromBlockInfo(info *ghw.BlockInfo) device.Device {
	var disks []device.Device
	for _, d := range info.Disks {
		var parts []device.Device
		for _, p := range d.Partitions {
			parts = append(parts, device.Partition{
				Serial:  device.Ptr(known(p.UUID)),
				DevPath: "/dev/" + p.Name,
				Size:    p.SizeBytes,
			})
		}

		serial := known(d.SerialNumber)
		if serial == "" {
			serial = known(d.WWN)
		}
		disks = append(disks, device.ScsiDevice{
			Serial:  device.Ptr(serial),
			DevPath: "/dev/" + d.Name,
			Size:    d.SizeBytes,
		}.With(parts...))
	}
	return device.Root{}.With(disks...)
}
