// Package device models the block-device topology of a single host as a tree
// of tagged-union nodes.
//
// The set of variants is closed: only the types declared in this package
// implement Device. Every variant declares its own classification, identity
// and attribute comparison, so adding a variant cannot compile until each of
// those decisions has been made for it.
package device

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrInvariant marks a device tree that breaks a structural invariant
// (a virtual root, a nested Root, a tree not rooted at Root).
var ErrInvariant = errors.New("device tree invariant violated")

// Kind is the variant tag of a Device.
type Kind string

const (
	KindRoot          Kind = "Root"
	KindScsiDevice    Kind = "ScsiDevice"
	KindPartition     Kind = "Partition"
	KindMpath         Kind = "Mpath"
	KindMdRaid        Kind = "MdRaid"
	KindVolumeGroup   Kind = "VolumeGroup"
	KindLogicalVolume Kind = "LogicalVolume"
	KindZpool         Kind = "Zpool"
	KindDataset       Kind = "Dataset"
)

// Kinds lists every variant in canonical order. Children of a node are
// ordered by this rank first.
var Kinds = []Kind{
	KindRoot,
	KindScsiDevice,
	KindPartition,
	KindMpath,
	KindMdRaid,
	KindVolumeGroup,
	KindLogicalVolume,
	KindZpool,
	KindDataset,
}

func (k Kind) rank() int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}

// Device is one node of a host's device tree. Values are immutable once
// built; every transformation returns a new value.
type Device interface {
	fmt.Stringer

	Kind() Kind

	// Identity returns the variant tag and identity attribute used to decide
	// whether two nodes describe the same device.
	Identity() Identity

	virtual() bool
	writeAttrs(d *xxhash.Digest)
	sameAttrs(other Device) bool
}

// Container is a Device that owns a set of children. Every variant except
// Dataset is a Container.
type Container interface {
	Device
	Children() Children
	WithChildren(c Children) Container
}

// Identity is the comparable identity of a node. Known is false when the
// variant's optional identity attribute is absent (and always for Root).
type Identity struct {
	Kind  Kind
	Value string
	Known bool
}

func (i Identity) String() string {
	if !i.Known {
		return string(i.Kind)
	}
	return string(i.Kind) + "(" + i.Value + ")"
}

// IsVirtual reports whether d is synthesized by an OS storage-virtualization
// layer (software RAID, LVM, ZFS) rather than backed by hardware.
func IsVirtual(d Device) bool {
	return d.virtual()
}

// SameIdentity reports whether a and b have the same variant and identity
// attributes. Children and descriptive attributes are not compared.
func SameIdentity(a, b Device) bool {
	return a.Identity() == b.Identity()
}

// Equal reports full structural equality: variant, every attribute and the
// complete set of descendants.
func Equal(a, b Device) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || Sum(a) != Sum(b) {
		return false
	}
	return equal(a, b)
}

func equal(a, b Device) bool {
	if a.Kind() != b.Kind() || !a.sameAttrs(b) {
		return false
	}
	ac, aok := a.(Container)
	bc, bok := b.(Container)
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return ac.Children().Equal(bc.Children())
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optional(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optionalIdentity(k Kind, s *string) Identity {
	if s == nil {
		return Identity{Kind: k}
	}
	return Identity{Kind: k, Value: *s, Known: true}
}
