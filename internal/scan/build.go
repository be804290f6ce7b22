package scan

import (
	"io/fs"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
)

type inventory struct {
	mdUUIDs  map[string]string
	mpaths   map[string]string
	vgs      map[string]volumeGroup
	lvs      map[string]logicalVolume
	pools    map[string]*pool
	members  map[string]string
	datasets map[string][]dataset
}

func newInventory() *inventory {
	return &inventory{
		mdUUIDs:  map[string]string{},
		mpaths:   map[string]string{},
		vgs:      map[string]volumeGroup{},
		lvs:      map[string]logicalVolume{},
		pools:    map[string]*pool{},
		members:  map[string]string{},
		datasets: map[string][]dataset{},
	}
}

type builder struct {
	inv     *inventory
	resolve func(string) string
	sysfs   fs.FS
}

// paths returns the names a block device may be known by in other tools.
func (b *builder) paths(d blockDev) []string {
	ps := []string{d.Path}
	if d.Kname != "" {
		ps = append(ps, "/dev/"+d.Kname)
	}
	if r := b.resolve(d.Path); r != d.Path {
		ps = append(ps, r)
	}
	return ps
}

func lookup[V any](m map[string]V, keys []string) (V, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (b *builder) root(devs []blockDev) device.Device {
	var top []device.Device
	for _, d := range devs {
		if n := b.node(d); n != nil {
			top = append(top, n)
		}
	}
	return device.Root{}.With(top...)
}

// node converts an lsblk entry. Types with no device variant (loop, rom,
// crypt) are dropped together with everything below them.
func (b *builder) node(d blockDev) device.Device {
	size := uint64(d.Size)

	switch {
	case d.Type == "disk":
		serial := d.Serial
		if serial == "" {
			serial = d.WWN
		}
		if serial == "" {
			ids := readSysfsIDs(b.sysfs, d.Kname)
			serial = ids.Serial
			if serial == "" {
				serial = ids.WWID
			}
		}
		return device.ScsiDevice{Serial: device.Ptr(serial), DevPath: d.Path, Size: size}.With(b.children(d)...)
	case d.Type == "part":
		return device.Partition{Serial: device.Ptr(d.PartUUID), DevPath: d.Path, Size: size}.With(b.children(d)...)
	case d.Type == "mpath":
		wwid := b.inv.mpaths[d.Name]
		if wwid == "" {
			wwid = d.WWN
		}
		return device.Mpath{Serial: device.Ptr(wwid), DevPath: d.Path, Size: size}.With(b.children(d)...)
	case isMdType(d.Type):
		uuid, ok := lookup(b.inv.mdUUIDs, b.paths(d))
		if !ok {
			uuid = d.Kname
		}
		return device.MdRaid{UUID: uuid, DevPath: d.Path, Size: size}.With(b.children(d)...)
	}
	return nil
}

func (b *builder) children(d blockDev) []device.Device {
	var out []device.Device

	groups := map[string][]device.Device{}
	for _, c := range d.Children {
		if c.Type != "lvm" {
			if n := b.node(c); n != nil {
				out = append(out, n)
			}
			continue
		}

		lv, ok := lookup(b.inv.lvs, b.paths(c))
		if !ok {
			continue
		}
		groups[lv.VGName] = append(groups[lv.VGName], device.LogicalVolume{
			UUID:    lv.UUID,
			Name:    lv.Name,
			DevPath: c.Path,
			Size:    uint64(c.Size),
		}.With(b.children(c)...))
	}

	for name, lvs := range groups {
		vg := b.inv.vgs[name]
		out = append(out, device.VolumeGroup{Name: name, UUID: vg.UUID, Size: vg.Size}.With(lvs...))
	}

	if name, ok := lookup(b.inv.members, b.paths(d)); ok {
		if p, ok := b.inv.pools[name]; ok {
			out = append(out, b.zpool(p))
		}
	}

	return out
}

func (b *builder) zpool(p *pool) device.Device {
	var datasets []device.Device
	for _, ds := range b.inv.datasets[p.Name] {
		datasets = append(datasets, device.Dataset{GUID: ds.GUID, Name: ds.Name})
	}
	return device.Zpool{GUID: p.GUID, Name: p.Name, Size: p.Size}.With(datasets...)
}
