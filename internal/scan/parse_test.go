package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLsblk(t *testing.T) {
	devs, err := parseLsblk([]byte(lsblkFixture))
	require.NoError(t, err)
	require.Len(t, devs, 6)

	sda := devs[1]
	assert.Equal(t, "S1", sda.Serial)
	assert.Equal(t, byteSize(4000787030016), sda.Size, "quoted size")
	require.Len(t, sda.Children, 1)
	assert.Equal(t, "P1", sda.Children[0].PartUUID)
	assert.True(t, isMdType(sda.Children[0].Children[0].Type))

	assert.Empty(t, devs[3].Serial, "null serial")

	_, err = parseLsblk([]byte(`{"blockdevices": [{"size": "big"}]}`))
	assert.Error(t, err)
}

func TestParseMdadmScan(t *testing.T) {
	arrays := parseMdadmScan([]byte(mdadmFixture))
	require.Len(t, arrays, 1)
	assert.Equal(t, mdArray{Device: "/dev/md/array0", UUID: "0a1b2c3d:4e5f6071:8293a4b5:c6d7e8f9"}, arrays[0])
}

func TestParseDmsetup(t *testing.T) {
	assert.Equal(t, map[string]string{"mpatha": "36001405abcdef"}, parseDmsetup([]byte(dmsetupFixture)))
}

func TestParseLVM(t *testing.T) {
	vgs, err := parseVGs([]byte(vgsFixture))
	require.NoError(t, err)
	assert.Equal(t, volumeGroup{Name: "vg_mdt", UUID: "VG-UUID-1", Size: 1099507433472}, vgs["vg_mdt"])

	lvs, err := parseLVs([]byte(lvsFixture))
	require.NoError(t, err)
	require.Len(t, lvs, 1)
	assert.Equal(t, "/dev/mapper/vg_mdt-mdt0", lvs[0].DmPath)
	assert.Equal(t, uint64(536870912000), lvs[0].Size)

	_, err = parseLVs([]byte("not json"))
	assert.Error(t, err)
}

func TestParseZFS(t *testing.T) {
	pools := parseZpoolGet([]byte(zpoolGetFixture))
	require.Contains(t, pools, "tank")
	assert.Equal(t, "14707061191158689053", pools["tank"].GUID)
	assert.Equal(t, uint64(7971459301376), pools["tank"].Size)

	assert.Equal(t, map[string]string{"/dev/sde1": "tank"}, parseZpoolStatus([]byte(zpoolStatusFixture)))

	datasets := parseZfsGet([]byte(zfsGetFixture))
	assert.Equal(t, []dataset{{Name: "tank/ost0", GUID: "9012"}}, datasets["tank"])
}
