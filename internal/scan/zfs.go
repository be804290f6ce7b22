package scan

import (
	"strconv"
	"strings"
)

var (
	zpoolGetArgs    = []string{"get", "-Hp", "-o", "name,property,value", "guid,size"}
	zpoolStatusArgs = []string{"status", "-LP"}
	zfsGetArgs      = []string{"get", "-Hp", "-o", "name,value", "guid"}
)

type pool struct {
	Name string
	GUID string
	Size uint64
}

type dataset struct {
	Name string
	GUID string
}

// parseZpoolGet parses `zpool get -Hp -o name,property,value guid,size`.
func parseZpoolGet(data []byte) map[string]*pool {
	pools := make(map[string]*pool)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		p, ok := pools[fields[0]]
		if !ok {
			p = &pool{Name: fields[0]}
			pools[fields[0]] = p
		}
		switch fields[1] {
		case "guid":
			p.GUID = fields[2]
		case "size":
			p.Size, _ = strconv.ParseUint(fields[2], 10, 64)
		}
	}
	return pools
}

// parseZpoolStatus maps each leaf vdev device path to its pool name.
func parseZpoolStatus(data []byte) map[string]string {
	members := make(map[string]string)

	var current string
	inConfig := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if name, ok := strings.CutPrefix(trimmed, "pool:"); ok {
			current = strings.TrimSpace(name)
			inConfig = false
			continue
		}
		if strings.HasPrefix(trimmed, "config:") {
			inConfig = true
			continue
		}
		if strings.HasPrefix(trimmed, "errors:") {
			inConfig = false
			continue
		}
		if !inConfig || current == "" {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		members[fields[0]] = current
	}
	return members
}

// parseZfsGet parses `zfs get -Hp -o name,value guid`. Pool root datasets
// are skipped; the pool itself represents them.
func parseZfsGet(data []byte) map[string][]dataset {
	byPool := make(map[string][]dataset)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		name := fields[0]
		poolName, _, nested := strings.Cut(name, "/")
		if !nested || strings.Contains(name, "@") {
			continue
		}
		byPool[poolName] = append(byPool[poolName], dataset{Name: name, GUID: fields[1]})
	}
	return byPool
}
