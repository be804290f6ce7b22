package scan

import (
	"encoding/json"
	"strconv"
	"strings"
)

var lsblkArgs = []string{"-J", "-b", "-o", "NAME,KNAME,PATH,TYPE,SIZE,SERIAL,WWN,PARTUUID,FSTYPE"}

// lsblkOutput represents the JSON output from lsblk
type lsblkOutput struct {
	Blockdevices []blockDev `json:"blockdevices"`
}

// blockDev represents a single device in lsblk output
type blockDev struct {
	Name     string     `json:"name"`
	Kname    string     `json:"kname"`
	Path     string     `json:"path"`
	Type     string     `json:"type"`
	Size     byteSize   `json:"size"`
	Serial   string     `json:"serial"`
	WWN      string     `json:"wwn"`
	PartUUID string     `json:"partuuid"`
	FSType   string     `json:"fstype"`
	Children []blockDev `json:"children,omitempty"`
}

// byteSize accepts both the numeric and the quoted form lsblk versions emit
// with -b.
type byteSize uint64

func (s *byteSize) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return err
	}
	*s = byteSize(v)
	return nil
}

func parseLsblk(data []byte) ([]blockDev, error) {
	var out lsblkOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Blockdevices, nil
}

// isMdType reports whether an lsblk TYPE is a software RAID array.
func isMdType(t string) bool {
	return strings.HasPrefix(t, "raid") || t == "linear" || t == "md"
}
