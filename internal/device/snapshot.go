package device

import (
	"encoding/json"
	"fmt"
)

// Snapshot pairs a host's fully-qualified domain name with the device tree
// most recently scanned on it.
type Snapshot struct {
	Host string
	Tree Device
}

type snapshotJSON struct {
	Host string `json:"host"`
	Tree Node   `json:"tree"`
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{Host: s.Host, Tree: Node{s.Tree}})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var v snapshotJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Host == "" {
		return fmt.Errorf("snapshot: missing host")
	}
	s.Host = v.Host
	s.Tree = v.Tree.Device
	return nil
}

// Batch is the input of one reconciliation pass as stored in files:
// an ordered list of snapshots.
type Batch struct {
	Snapshots []Snapshot `json:"snapshots"`
}
