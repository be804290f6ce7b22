package reconcile

import (
	"github.com/beevans/integrated-manager-for-lustre/internal/device"
)

// Insert searches tree depth-first, pre-order, children in canonical order,
// for the first node with the donor's identity and replaces that node, with
// everything below it, by donor. The search stops at the first match.
//
// When nothing matches, tree is returned unchanged and ok is false. That is
// the normal outcome for a donor collected on a host that shares no devices
// with this one. A tree that already holds a node equal to donor is also
// returned unchanged, so applying the same donor again never touches a
// second sibling of the same identity.
func Insert(tree, donor device.Device) (result device.Device, ok bool) {
	if holds(tree, donor) {
		return tree, false
	}
	return insert(tree, donor)
}

func holds(tree, donor device.Device) bool {
	found := false
	device.Walk(tree, func(d, _ device.Device, _ int) bool {
		if found {
			return false
		}
		if device.SameIdentity(d, donor) && device.Equal(d, donor) {
			found = true
			return false
		}
		return true
	})
	return found
}

func insert(tree, donor device.Device) (device.Device, bool) {
	if device.SameIdentity(tree, donor) {
		return donor, true
	}

	c, isContainer := tree.(device.Container)
	if !isContainer {
		return tree, false
	}

	children := c.Children()
	for i := 0; i < children.Len(); i++ {
		if replaced, ok := insert(children.At(i), donor); ok {
			return c.WithChildren(children.Replace(i, replaced)), true
		}
	}
	return tree, false
}

// InsertAll applies every donor to tree in order.
func InsertAll(tree device.Device, donors []device.Device) device.Device {
	for _, donor := range donors {
		tree, _ = Insert(tree, donor)
	}
	return tree
}
