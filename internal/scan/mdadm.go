package scan

import (
	"regexp"
	"strings"
)

var mdadmArgs = []string{"--detail", "--scan"}

var (
	reArray = regexp.MustCompile(`ARRAY\s+(\S+)`)
	reUUID  = regexp.MustCompile(`UUID=([0-9a-fA-F:]+)`)
)

// mdArray holds parsed MD array data
type mdArray struct {
	Device string
	UUID   string
}

// parseMdadmScan parses output like:
//
//	ARRAY /dev/md/array1 metadata=1.2 UUID=12345678:90abcdef:12345678:90abcdef name=host:array1
func parseMdadmScan(data []byte) []mdArray {
	var arrays []mdArray
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ARRAY") {
			continue
		}

		var arr mdArray
		if m := reArray.FindStringSubmatch(line); len(m) > 1 {
			arr.Device = m[1]
		}
		if m := reUUID.FindStringSubmatch(line); len(m) > 1 {
			arr.UUID = m[1]
		}

		if arr.Device != "" && arr.UUID != "" {
			arrays = append(arrays, arr)
		}
	}
	return arrays
}
