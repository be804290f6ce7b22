package scan

const lsblkFixture = `{
   "blockdevices": [
      {"name":"loop0", "kname":"loop0", "path":"/dev/loop0", "type":"loop", "size":73728000, "serial":null, "wwn":null, "partuuid":null, "fstype":"squashfs"},
      {"name":"sda", "kname":"sda", "path":"/dev/sda", "type":"disk", "size":"4000787030016", "serial":"S1", "wwn":"0x5000c500a1b2c3d4", "partuuid":null, "fstype":null,
         "children": [
            {"name":"sda1", "kname":"sda1", "path":"/dev/sda1", "type":"part", "size":4000785104896, "serial":null, "wwn":"0x5000c500a1b2c3d4", "partuuid":"P1", "fstype":"linux_raid_member",
               "children": [
                  {"name":"md0", "kname":"md0", "path":"/dev/md0", "type":"raid1", "size":4000650887168, "serial":null, "wwn":null, "partuuid":null, "fstype":"ext4"}
               ]
            }
         ]
      },
      {"name":"sdb", "kname":"sdb", "path":"/dev/sdb", "type":"disk", "size":4000787030016, "serial":"S2", "wwn":null, "partuuid":null, "fstype":null,
         "children": [
            {"name":"sdb1", "kname":"sdb1", "path":"/dev/sdb1", "type":"part", "size":4000785104896, "serial":null, "wwn":null, "partuuid":"P2", "fstype":"linux_raid_member",
               "children": [
                  {"name":"md0", "kname":"md0", "path":"/dev/md0", "type":"raid1", "size":4000650887168, "serial":null, "wwn":null, "partuuid":null, "fstype":"ext4"}
               ]
            }
         ]
      },
      {"name":"sdc", "kname":"sdc", "path":"/dev/sdc", "type":"disk", "size":1099511627776, "serial":null, "wwn":"0x6001405", "partuuid":null, "fstype":"mpath_member",
         "children": [
            {"name":"mpatha", "kname":"dm-0", "path":"/dev/mapper/mpatha", "type":"mpath", "size":1099511627776, "serial":null, "wwn":null, "partuuid":null, "fstype":"LVM2_member",
               "children": [
                  {"name":"vg_mdt-mdt0", "kname":"dm-1", "path":"/dev/mapper/vg_mdt-mdt0", "type":"lvm", "size":536870912000, "serial":null, "wwn":null, "partuuid":null, "fstype":"ldiskfs"}
               ]
            }
         ]
      },
      {"name":"sdd", "kname":"sdd", "path":"/dev/sdd", "type":"disk", "size":1099511627776, "serial":"S4", "wwn":"0x6001405", "partuuid":null, "fstype":"mpath_member",
         "children": [
            {"name":"mpatha", "kname":"dm-0", "path":"/dev/mapper/mpatha", "type":"mpath", "size":1099511627776, "serial":null, "wwn":null, "partuuid":null, "fstype":"LVM2_member",
               "children": [
                  {"name":"vg_mdt-mdt0", "kname":"dm-1", "path":"/dev/mapper/vg_mdt-mdt0", "type":"lvm", "size":536870912000, "serial":null, "wwn":null, "partuuid":null, "fstype":"ldiskfs"}
               ]
            }
         ]
      },
      {"name":"sde", "kname":"sde", "path":"/dev/sde", "type":"disk", "size":8001563222016, "serial":"S5", "wwn":null, "partuuid":null, "fstype":null,
         "children": [
            {"name":"sde1", "kname":"sde1", "path":"/dev/sde1", "type":"part", "size":8001552695296, "serial":null, "wwn":null, "partuuid":"P5", "fstype":"zfs_member"},
            {"name":"sde9", "kname":"sde9", "path":"/dev/sde9", "type":"part", "size":8388608, "serial":null, "wwn":null, "partuuid":"P9", "fstype":null}
         ]
      }
   ]
}`

const mdadmFixture = `ARRAY /dev/md/array0 metadata=1.2 UUID=0a1b2c3d:4e5f6071:8293a4b5:c6d7e8f9 name=oss1:array0
ARRAY /dev/md/broken metadata=1.2 name=oss1:broken
`

const dmsetupFixture = `mpatha:mpath-36001405abcdef
vg_mdt-mdt0:LVM-Hc9sP2pQwWdJ1n0
`

const vgsFixture = `{
  "report": [
    {"vg": [{"vg_name":"vg_mdt", "vg_uuid":"VG-UUID-1", "vg_size":"1099507433472"}]}
  ]
}`

const lvsFixture = `{
  "report": [
    {"lv": [{"lv_name":"mdt0", "lv_uuid":"LV-UUID-1", "vg_name":"vg_mdt", "lv_path":"/dev/vg_mdt/mdt0", "lv_dm_path":"/dev/mapper/vg_mdt-mdt0", "lv_size":"536870912000B"}]}
  ]
}`

const zpoolGetFixture = "tank\tguid\t14707061191158689053\ntank\tsize\t7971459301376\n"

const zpoolStatusFixture = `  pool: tank
 state: ONLINE
  scan: none requested
config:

	NAME         STATE     READ WRITE CKSUM
	tank         ONLINE       0     0     0
	  /dev/sde1  ONLINE       0     0     0

errors: No known data errors
`

const zfsGetFixture = "tank\t9001\ntank/ost0\t9012\ntank/ost0@daily\t9013\n"
