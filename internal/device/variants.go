package device

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Root is the entry point of every host tree. It is never virtual and never
// nested.
type Root struct {
	children Children
}

// ScsiDevice is a disk that looks like real hardware to the host OS (SAS,
// SATA, iSCSI LUN). Serial is its identity; it may be unknown.
type ScsiDevice struct {
	Serial  *string
	DevPath string
	Size    uint64

	children Children
}

// Partition is a partition of a disk or multipath device.
type Partition struct {
	Serial  *string
	DevPath string
	Size    uint64

	children Children
}

// Mpath is a device-mapper multipath device.
type Mpath struct {
	Serial  *string
	DevPath string
	Size    uint64

	children Children
}

// MdRaid is a Linux software RAID array.
type MdRaid struct {
	UUID    string
	DevPath string
	Size    uint64

	children Children
}

// VolumeGroup is an LVM volume group, identified by name.
type VolumeGroup struct {
	Name string
	UUID string
	Size uint64

	children Children
}

// LogicalVolume is an LVM logical volume.
type LogicalVolume struct {
	UUID    string
	Name    string
	DevPath string
	Size    uint64

	children Children
}

// Zpool is a ZFS storage pool.
type Zpool struct {
	GUID string
	Name string
	Size uint64

	children Children
}

// Dataset is a ZFS dataset. It is always a leaf.
type Dataset struct {
	GUID string
	Name string
}

// Root

func (Root) Kind() Kind { return KindRoot }
func (Root) Identity() Identity { return Identity{Kind: KindRoot} }
func (Root) virtual() bool { return false }
func (Root) writeAttrs(*xxhash.Digest) {}
func (d Root) Children() Children { return d.children }
func (Root) sameAttrs(other Device) bool {
	_, ok := other.(Root)
	return ok
}

func (d Root) WithChildren(c Children) Container {
	d.children = c
	return d
}

// With returns a copy of d whose children are exactly ds.
func (d Root) With(ds ...Device) Root {
	d.children = NewChildren(ds...)
	return d
}

func (d Root) String() string {
	return fmt.Sprintf("Root: children: %d", d.children.Len())
}

// ScsiDevice

func (ScsiDevice) Kind() Kind { return KindScsiDevice }
func (d ScsiDevice) Identity() Identity { return optionalIdentity(KindScsiDevice, d.Serial) }
func (ScsiDevice) virtual() bool { return false }
func (d ScsiDevice) Children() Children { return d.children }
func (d ScsiDevice) With(ds ...Device) ScsiDevice {
	d.children = NewChildren(ds...)
	return d
}

func (d ScsiDevice) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d ScsiDevice) writeAttrs(h *xxhash.Digest) {
	writeOptional(h, d.Serial)
	writeString(h, d.DevPath)
	writeUint(h, d.Size)
}

func (d ScsiDevice) sameAttrs(other Device) bool {
	o, ok := other.(ScsiDevice)
	return ok && sameOptional(d.Serial, o.Serial) && d.DevPath == o.DevPath && d.Size == o.Size
}

func (d ScsiDevice) String() string {
	return fmt.Sprintf("ScsiDevice: serial: %s, children: %d", optional(d.Serial), d.children.Len())
}

// Partition

func (Partition) Kind() Kind { return KindPartition }
func (d Partition) Identity() Identity { return optionalIdentity(KindPartition, d.Serial) }
func (Partition) virtual() bool { return false }
func (d Partition) Children() Children { return d.children }
func (d Partition) With(ds ...Device) Partition {
	d.children = NewChildren(ds...)
	return d
}

func (d Partition) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d Partition) writeAttrs(h *xxhash.Digest) {
	writeOptional(h, d.Serial)
	writeString(h, d.DevPath)
	writeUint(h, d.Size)
}

func (d Partition) sameAttrs(other Device) bool {
	o, ok := other.(Partition)
	return ok && sameOptional(d.Serial, o.Serial) && d.DevPath == o.DevPath && d.Size == o.Size
}

func (d Partition) String() string {
	return fmt.Sprintf("Partition: serial: %s, children: %d", optional(d.Serial), d.children.Len())
}

// Mpath

func (Mpath) Kind() Kind { return KindMpath }
func (d Mpath) Identity() Identity { return optionalIdentity(KindMpath, d.Serial) }
func (Mpath) virtual() bool { return false }
func (d Mpath) Children() Children { return d.children }
func (d Mpath) With(ds ...Device) Mpath {
	d.children = NewChildren(ds...)
	return d
}

func (d Mpath) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d Mpath) writeAttrs(h *xxhash.Digest) {
	writeOptional(h, d.Serial)
	writeString(h, d.DevPath)
	writeUint(h, d.Size)
}

func (d Mpath) sameAttrs(other Device) bool {
	o, ok := other.(Mpath)
	return ok && sameOptional(d.Serial, o.Serial) && d.DevPath == o.DevPath && d.Size == o.Size
}

func (d Mpath) String() string {
	return fmt.Sprintf("Mpath: serial: %s, children: %d", optional(d.Serial), d.children.Len())
}

// MdRaid

func (MdRaid) Kind() Kind { return KindMdRaid }
func (d MdRaid) Identity() Identity {
	return Identity{Kind: KindMdRaid, Value: d.UUID, Known: true}
}
func (MdRaid) virtual() bool { return true }
func (d MdRaid) Children() Children { return d.children }
func (d MdRaid) With(ds ...Device) MdRaid {
	d.children = NewChildren(ds...)
	return d
}

func (d MdRaid) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d MdRaid) writeAttrs(h *xxhash.Digest) {
	writeString(h, d.UUID)
	writeString(h, d.DevPath)
	writeUint(h, d.Size)
}

func (d MdRaid) sameAttrs(other Device) bool {
	o, ok := other.(MdRaid)
	return ok && d.UUID == o.UUID && d.DevPath == o.DevPath && d.Size == o.Size
}

func (d MdRaid) String() string {
	return fmt.Sprintf("MdRaid: uuid: %s, children: %d", d.UUID, d.children.Len())
}

// VolumeGroup

func (VolumeGroup) Kind() Kind { return KindVolumeGroup }
func (d VolumeGroup) Identity() Identity {
	return Identity{Kind: KindVolumeGroup, Value: d.Name, Known: true}
}
func (VolumeGroup) virtual() bool { return true }
func (d VolumeGroup) Children() Children { return d.children }
func (d VolumeGroup) With(ds ...Device) VolumeGroup {
	d.children = NewChildren(ds...)
	return d
}

func (d VolumeGroup) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d VolumeGroup) writeAttrs(h *xxhash.Digest) {
	writeString(h, d.Name)
	writeString(h, d.UUID)
	writeUint(h, d.Size)
}

func (d VolumeGroup) sameAttrs(other Device) bool {
	o, ok := other.(VolumeGroup)
	return ok && d.Name == o.Name && d.UUID == o.UUID && d.Size == o.Size
}

func (d VolumeGroup) String() string {
	return fmt.Sprintf("VolumeGroup: name: %s, children: %d", d.Name, d.children.Len())
}

// LogicalVolume

func (LogicalVolume) Kind() Kind { return KindLogicalVolume }
func (d LogicalVolume) Identity() Identity {
	return Identity{Kind: KindLogicalVolume, Value: d.UUID, Known: true}
}
func (LogicalVolume) virtual() bool { return true }
func (d LogicalVolume) Children() Children { return d.children }
func (d LogicalVolume) With(ds ...Device) LogicalVolume {
	d.children = NewChildren(ds...)
	return d
}

func (d LogicalVolume) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d LogicalVolume) writeAttrs(h *xxhash.Digest) {
	writeString(h, d.UUID)
	writeString(h, d.Name)
	writeString(h, d.DevPath)
	writeUint(h, d.Size)
}

func (d LogicalVolume) sameAttrs(other Device) bool {
	o, ok := other.(LogicalVolume)
	return ok && d.UUID == o.UUID && d.Name == o.Name && d.DevPath == o.DevPath && d.Size == o.Size
}

func (d LogicalVolume) String() string {
	return fmt.Sprintf("LogicalVolume: uuid: %s, children: %d", d.UUID, d.children.Len())
}

// Zpool

func (Zpool) Kind() Kind { return KindZpool }
func (d Zpool) Identity() Identity {
	return Identity{Kind: KindZpool, Value: d.GUID, Known: true}
}
func (Zpool) virtual() bool { return true }
func (d Zpool) Children() Children { return d.children }
func (d Zpool) With(ds ...Device) Zpool {
	d.children = NewChildren(ds...)
	return d
}

func (d Zpool) WithChildren(c Children) Container {
	d.children = c
	return d
}

func (d Zpool) writeAttrs(h *xxhash.Digest) {
	writeString(h, d.GUID)
	writeString(h, d.Name)
	writeUint(h, d.Size)
}

func (d Zpool) sameAttrs(other Device) bool {
	o, ok := other.(Zpool)
	return ok && d.GUID == o.GUID && d.Name == o.Name && d.Size == o.Size
}

func (d Zpool) String() string {
	return fmt.Sprintf("Zpool: guid: %s, children: %d", d.GUID, d.children.Len())
}

// Dataset

func (Dataset) Kind() Kind { return KindDataset }
func (d Dataset) Identity() Identity {
	return Identity{Kind: KindDataset, Value: d.GUID, Known: true}
}
func (Dataset) virtual() bool { return true }

func (d Dataset) writeAttrs(h *xxhash.Digest) {
	writeString(h, d.GUID)
	writeString(h, d.Name)
}

func (d Dataset) sameAttrs(other Device) bool {
	o, ok := other.(Dataset)
	return ok && d.GUID == o.GUID && d.Name == o.Name
}

func (d Dataset) String() string {
	return fmt.Sprintf("Dataset: guid: %s, children: 0", d.GUID)
}
