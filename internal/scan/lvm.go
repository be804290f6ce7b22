package scan

import (
	"encoding/json"
	"strconv"
	"strings"
)

var (
	vgsArgs = []string{"--reportformat", "json", "--units", "b", "--nosuffix", "-o", "vg_name,vg_uuid,vg_size"}
	lvsArgs = []string{"--reportformat", "json", "--units", "b", "--nosuffix", "-o", "lv_name,lv_uuid,vg_name,lv_path,lv_dm_path,lv_size"}
)

// vgReport represents vgs JSON output
type vgReport struct {
	Report []struct {
		VG []struct {
			VGName string `json:"vg_name"`
			VGUUID string `json:"vg_uuid"`
			VGSize string `json:"vg_size"`
		} `json:"vg"`
	} `json:"report"`
}

// lvReport represents lvs JSON output
type lvReport struct {
	Report []struct {
		LV []struct {
			LVName   string `json:"lv_name"`
			LVUUID   string `json:"lv_uuid"`
			VGName   string `json:"vg_name"`
			LVPath   string `json:"lv_path"`
			LVDmPath string `json:"lv_dm_path"`
			LVSize   string `json:"lv_size"`
		} `json:"lv"`
	} `json:"report"`
}

type volumeGroup struct {
	Name string
	UUID string
	Size uint64
}

type logicalVolume struct {
	Name   string
	UUID   string
	VGName string
	Path   string
	DmPath string
	Size   uint64
}

func parseVGs(data []byte) (map[string]volumeGroup, error) {
	var report vgReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	vgs := make(map[string]volumeGroup)
	for _, r := range report.Report {
		for _, vg := range r.VG {
			vgs[vg.VGName] = volumeGroup{Name: vg.VGName, UUID: vg.VGUUID, Size: lvmSize(vg.VGSize)}
		}
	}
	return vgs, nil
}

func parseLVs(data []byte) ([]logicalVolume, error) {
	var report lvReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	var lvs []logicalVolume
	for _, r := range report.Report {
		for _, lv := range r.LV {
			lvs = append(lvs, logicalVolume{
				Name:   lv.LVName,
				UUID:   lv.LVUUID,
				VGName: lv.VGName,
				Path:   lv.LVPath,
				DmPath: lv.LVDmPath,
				Size:   lvmSize(lv.LVSize),
			})
		}
	}
	return lvs, nil
}

// lvmSize parses a --units b --nosuffix size, tolerating a trailing B.
func lvmSize(s string) uint64 {
	v, _ := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(s), "B"), 10, 64)
	return v
}
