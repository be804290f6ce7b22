package scan

import (
	"io/fs"
	"path"
	"strings"
)

// sysfsIDs holds the identifiers a SCSI disk exposes under
// /sys/block/<kname>/device. Reading them does not wake sleeping drives.
type sysfsIDs struct {
	Serial string
	WWID   string
}

// readSysfsIDs reads kname's identifiers from fsys, a view of /sys.
func readSysfsIDs(fsys fs.FS, kname string) sysfsIDs {
	var ids sysfsIDs
	if fsys == nil || kname == "" {
		return ids
	}
	dir := path.Join("block", kname, "device")

	if data, err := fs.ReadFile(fsys, path.Join(dir, "vpd_pg80")); err == nil {
		ids.Serial = parseVPD80(data)
	}
	if data, err := fs.ReadFile(fsys, path.Join(dir, "wwid")); err == nil {
		ids.WWID = trimWWID(string(data))
	}
	return ids
}

// parseVPD80 extracts the unit serial number from a VPD page 0x80 dump: a
// 4-byte header followed by ASCII, often space padded.
func parseVPD80(data []byte) string {
	if len(data) <= 4 {
		return ""
	}
	serial := strings.Map(func(r rune) rune {
		if r >= 32 && r < 127 {
			return r
		}
		return -1
	}, string(data[4:]))
	return strings.TrimSpace(serial)
}

// trimWWID drops the designator prefix, so naa.5000c500d006891c reads like
// lsblk's WWN column without the 0x.
func trimWWID(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"naa.", "t10.", "eui."} {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}
