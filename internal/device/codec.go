package device

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Node wraps a Device for JSON and YAML encoding. A node is encoded as an
// externally tagged union, e.g.
//
//	{"ScsiDevice": {"serial": "S1", "children": [{"MdRaid": {"uuid": "U1", "children": []}}]}}
type Node struct {
	Device
}

type rootJSON struct {
	Children []Node `json:"children"`
}

type blockJSON struct {
	Serial   *string `json:"serial"`
	DevPath  string  `json:"devpath,omitempty"`
	Size     uint64  `json:"size,omitempty"`
	Children []Node  `json:"children"`
}

type mdRaidJSON struct {
	UUID     string `json:"uuid"`
	DevPath  string `json:"devpath,omitempty"`
	Size     uint64 `json:"size,omitempty"`
	Children []Node `json:"children"`
}

type volumeGroupJSON struct {
	Name     string `json:"name"`
	UUID     string `json:"uuid,omitempty"`
	Size     uint64 `json:"size,omitempty"`
	Children []Node `json:"children"`
}

type logicalVolumeJSON struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name,omitempty"`
	DevPath  string `json:"devpath,omitempty"`
	Size     uint64 `json:"size,omitempty"`
	Children []Node `json:"children"`
}

type zpoolJSON struct {
	GUID     string `json:"guid"`
	Name     string `json:"name,omitempty"`
	Size     uint64 `json:"size,omitempty"`
	Children []Node `json:"children"`
}

type datasetJSON struct {
	GUID string `json:"guid"`
	Name string `json:"name,omitempty"`
}

func nodes(c Children) []Node {
	out := make([]Node, 0, c.Len())
	for d := range c.All() {
		out = append(out, Node{d})
	}
	return out
}

func devices(ns []Node) []Device {
	out := make([]Device, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Device)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Device == nil {
		return []byte("null"), nil
	}

	var body any
	switch d := n.Device.(type) {
	case Root:
		body = rootJSON{Children: nodes(d.children)}
	case ScsiDevice:
		body = blockJSON{Serial: d.Serial, DevPath: d.DevPath, Size: d.Size, Children: nodes(d.children)}
	case Partition:
		body = blockJSON{Serial: d.Serial, DevPath: d.DevPath, Size: d.Size, Children: nodes(d.children)}
	case Mpath:
		body = blockJSON{Serial: d.Serial, DevPath: d.DevPath, Size: d.Size, Children: nodes(d.children)}
	case MdRaid:
		body = mdRaidJSON{UUID: d.UUID, DevPath: d.DevPath, Size: d.Size, Children: nodes(d.children)}
	case VolumeGroup:
		body = volumeGroupJSON{Name: d.Name, UUID: d.UUID, Size: d.Size, Children: nodes(d.children)}
	case LogicalVolume:
		body = logicalVolumeJSON{UUID: d.UUID, Name: d.Name, DevPath: d.DevPath, Size: d.Size, Children: nodes(d.children)}
	case Zpool:
		body = zpoolJSON{GUID: d.GUID, Name: d.Name, Size: d.Size, Children: nodes(d.children)}
	case Dataset:
		body = datasetJSON{GUID: d.GUID, Name: d.Name}
	default:
		return nil, fmt.Errorf("unknown device variant %T", n.Device)
	}

	return json.Marshal(map[Kind]any{n.Kind(): body})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var tagged map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode device: %w", err)
	}
	if tagged == nil {
		n.Device = nil
		return nil
	}
	if len(tagged) != 1 {
		return fmt.Errorf("decode device: expected exactly one variant key, got %d", len(tagged))
	}

	for kind, raw := range tagged {
		d, err := decodeVariant(kind, raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		n.Device = d
	}
	return nil
}

func decodeVariant(kind Kind, raw json.RawMessage) (Device, error) {
	switch kind {
	case KindRoot:
		var v rootJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return Root{}.With(devices(v.Children)...), nil
	case KindScsiDevice, KindPartition, KindMpath:
		var v blockJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		children := NewChildren(devices(v.Children)...)
		switch kind {
		case KindScsiDevice:
			return ScsiDevice{Serial: v.Serial, DevPath: v.DevPath, Size: v.Size, children: children}, nil
		case KindPartition:
			return Partition{Serial: v.Serial, DevPath: v.DevPath, Size: v.Size, children: children}, nil
		default:
			return Mpath{Serial: v.Serial, DevPath: v.DevPath, Size: v.Size, children: children}, nil
		}
	case KindMdRaid:
		var v mdRaidJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return MdRaid{UUID: v.UUID, DevPath: v.DevPath, Size: v.Size}.With(devices(v.Children)...), nil
	case KindVolumeGroup:
		var v volumeGroupJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return VolumeGroup{Name: v.Name, UUID: v.UUID, Size: v.Size}.With(devices(v.Children)...), nil
	case KindLogicalVolume:
		var v logicalVolumeJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return LogicalVolume{UUID: v.UUID, Name: v.Name, DevPath: v.DevPath, Size: v.Size}.With(devices(v.Children)...), nil
	case KindZpool:
		var v zpoolJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return Zpool{GUID: v.GUID, Name: v.Name, Size: v.Size}.With(devices(v.Children)...), nil
	case KindDataset:
		var v datasetJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return Dataset{GUID: v.GUID, Name: v.Name}, nil
	default:
		return nil, fmt.Errorf("unknown device variant %q", kind)
	}
}

// Marshal encodes d as JSON.
func Marshal(d Device) ([]byte, error) {
	return json.Marshal(Node{d})
}

// Unmarshal decodes a JSON or YAML document into a Device.
func Unmarshal(data []byte) (Device, error) {
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Device == nil {
		return nil, fmt.Errorf("decode device: empty document")
	}
	return n.Device, nil
}
