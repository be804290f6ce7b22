package scan

import "strings"

var dmsetupArgs = []string{"info", "-c", "--noheadings", "-o", "name,uuid"}

// parseDmsetup returns the multipath WWID of every device-mapper multipath
// device, keyed by device-mapper name. Non-multipath targets are skipped.
func parseDmsetup(data []byte) map[string]string {
	wwids := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, ":", 2)
		if len(fields) < 2 {
			continue
		}

		name, uuid := fields[0], fields[1]
		if wwid, ok := strings.CutPrefix(uuid, "mpath-"); ok && wwid != "" {
			wwids[name] = wwid
		}
	}
	return wwids
}
