package reconcile

import (
	"fmt"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
)

// ErrNoAncestor is returned when a virtual device is found without a parent,
// which only happens when a virtual device is the entry point of a tree.
var ErrNoAncestor = fmt.Errorf("%w: virtual device has no parent", device.ErrInvariant)

// CollectVirtualParents walks tree pre-order and returns, for every virtual
// device found, its immediate parent as it stands (with all of the parent's
// children). The walk never descends into a virtual device, so only the first
// level of virtualization on each branch is captured. Parents shared by
// several virtual children are returned once per child.
func CollectVirtualParents(tree device.Device) ([]device.Device, error) {
	return collect(tree, nil)
}

func collect(d, parent device.Device) ([]device.Device, error) {
	if device.IsVirtual(d) {
		if parent == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoAncestor, d)
		}
		return []device.Device{parent}, nil
	}

	c, ok := d.(device.Container)
	if !ok {
		return nil, nil
	}

	var parents []device.Device
	for child := range c.Children().All() {
		found, err := collect(child, d)
		if err != nil {
			return nil, err
		}
		parents = append(parents, found...)
	}
	return parents, nil
}
