package zfs

import (
	"context"
	"testing"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const tankScrubbing = `  pool: tank
 state: ONLINE
  scan: scrub in progress since Sun Mar  9 00:24:01 2025
	2.47T / 3.71T scanned at 1.2G/s, 1.80T / 3.71T issued at 900M/s
	0B repaired, 48.52% done, 00:37:12 to go
config:

	NAME        STATE     READ WRITE CKSUM
	tank        ONLINE       0     0     0
	  raidz1-0  ONLINE       0     0     0
	    sda     ONLINE       0     0     0
	    sdb     ONLINE       0     0     0
	    sdc1    ONLINE       0     0     0

errors: No known data errors
`

const tankDegraded = `  pool: tank
 state: DEGRADED
status: One or more devices has been taken offline by the administrator.
action: Online the device using 'zpool online' or replace the device with
	'zpool replace'.
  scan: scrub repaired 0B in 02:11:40 with 0 errors on Sun Mar  9 02:35:41 2025
config:

	NAME        STATE     READ WRITE CKSUM
	tank        DEGRADED     0     0     0
	  mirror-0  DEGRADED     0     0     0
	    sda     ONLINE       0     0     0
	    sdb     FAULTED      3  1.2K     0  too many errors

errors: No known data errors
`

const backupWithErrors = `  pool: backup
 state: ONLINE
  scan: scrub repaired 4K in 00:10:01 with 2 errors on Sun Mar  9 01:00:00 2025
config:

	NAME           STATE     READ WRITE CKSUM
	backup         ONLINE       0     0     0
	  nvme0n1p3    ONLINE       0     0     2

errors: 2 data errors, use '-v' for a list
`

const fastResilver = `  pool: fast
 state: DEGRADED
  scan: resilver in progress since Sun Mar  9 03:00:00 2025
	12.3G / 40.1G scanned, 11.0G / 40.1G issued, 11.0G resilvered, 27.43% done
config:

	NAME        STATE     READ WRITE CKSUM
	fast        DEGRADED     0     0     0
	  mirror-0  DEGRADED     0     0     0
	    sdd     ONLINE       0     0     0
	    sde     OFFLINE      0     0     0

errors: No known data errors
`

func TestClassifyPool(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status string
		want   health.State
	}{
		{"online", "ONLINE", "", health.Healthy},
		{"degraded", "DEGRADED", tankDegraded, health.Degraded},
		{"faulted", "FAULTED", "", health.Faulted},
		{"unavail", "UNAVAIL", "", health.Unavail},
		{"unknown token", "SUSPENDED", "", health.Unknown},
		{"empty token", "", "", health.Unknown},
		{"scrub supersedes online", "ONLINE", tankScrubbing, health.ScrubActive},
		{"scrub supersedes degraded", "DEGRADED", tankScrubbing, health.ScrubActive},
		{"resilver", "DEGRADED", fastResilver, health.ResilverActive},
		{"scrub errors on online", "ONLINE", backupWithErrors, health.ScrubErrors},
		{"scrub errors ignored on degraded", "DEGRADED", backupWithErrors, health.Degraded},
		{"clean scrub", "ONLINE", tankDegraded, health.Healthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ClassifyPool(tt.token, tt.status)
			assert.Equal(t, tt.want, v.State)
			assert.True(t, health.Pool.Emits(v.State))
		})
	}
}

func TestClassifyDisk(t *testing.T) {
	pools := []PoolReport{
		{Name: "tank", Token: "DEGRADED", Status: tankDegraded},
		{Name: "backup", Token: "ONLINE", Status: backupWithErrors},
		{Name: "fast", Token: "DEGRADED", Status: fastResilver},
	}

	tests := []struct {
		device string
		want   health.State
	}{
		{"/dev/sda", health.Healthy},
		{"/dev/sdb", health.Faulted},
		{"nvme0n1", health.Healthy},
		{"/dev/sde", health.Faulted},
		{"/dev/sdf", health.NotInPool},
		{"/dev/", health.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			v := ClassifyDisk(tt.device, pools)
			assert.Equal(t, tt.want, v.State, v.Reason)
			assert.True(t, health.Disk.Emits(v.State))
		})
	}

	// partition rows count as the whole disk
	assert.Equal(t, health.Healthy, ClassifyDisk("sdc", []PoolReport{{Name: "tank", Status: tankScrubbing}}).State)

	// mentioned but unreadable falls back to healthy
	odd := []PoolReport{{Name: "odd", Status: "errors: sdq has issues\n"}}
	v := ClassifyDisk("sdq", odd)
	assert.Equal(t, health.Healthy, v.State)
	assert.Contains(t, v.Reason, "unreadable")

	// first pool in listing order wins
	dup := []PoolReport{
		{Name: "a", Status: "\tsdx     DEGRADED     0     0     0\n"},
		{Name: "b", Status: "\tsdx     ONLINE       0     0     0\n"},
	}
	assert.Equal(t, health.Degraded, ClassifyDisk("sdx", dup).State)

	// no prefix collisions
	assert.Equal(t, health.Healthy, ClassifyDisk("sda", []PoolReport{{Name: "t", Status: "\tsdaa  FAULTED 0 0 0\n"}}).State)
}

func TestClassifyPools(t *testing.T) {
	assert.Equal(t, health.Unavail, ClassifyPools(nil).State)

	v := ClassifyPools([]PoolReport{
		{Name: "tank", Token: "ONLINE", Status: tankScrubbing},
		{Name: "fast", Token: "DEGRADED", Status: tankDegraded},
	})
	assert.Equal(t, health.Degraded, v.State)
	assert.Equal(t, "fast: DEGRADED", v.Reason)
}

func TestClassifyScrub(t *testing.T) {
	assert.Equal(t, health.Healthy, ClassifyScrub(nil).State)

	assert.Equal(t, health.ResilverActive, ClassifyScrub([]PoolReport{
		{Name: "backup", Status: backupWithErrors},
		{Name: "tank", Status: tankScrubbing},
		{Name: "fast", Status: fastResilver},
	}).State)
	assert.Equal(t, health.ScrubActive, ClassifyScrub([]PoolReport{
		{Name: "backup", Status: backupWithErrors},
		{Name: "tank", Status: tankScrubbing},
	}).State)
	assert.Equal(t, health.ScrubErrors, ClassifyScrub([]PoolReport{
		{Name: "tank", Status: tankDegraded},
		{Name: "backup", Status: backupWithErrors},
	}).State)
}

func TestParseStatus(t *testing.T) {
	pools := ParseStatus(tankScrubbing + "\n" + tankDegraded)
	require.Len(t, pools, 2)

	scrub := pools[0]
	assert.Equal(t, "tank", scrub.Name)
	assert.Equal(t, StateOnline, scrub.State)
	assert.Equal(t, ScanScrub, scrub.ScanState)
	assert.InDelta(t, 48.52, scrub.ScanPercent, 0.001)
	assert.Equal(t, "No known data errors", scrub.Errors)
	require.Len(t, scrub.Vdevs, 5)
	assert.Equal(t, 0, scrub.Vdevs[0].Depth)
	assert.Equal(t, 1, scrub.Vdevs[1].Depth)
	assert.Equal(t, 2, scrub.Vdevs[2].Depth)
	assert.Equal(t, []string{"sda", "sdb", "sdc1"}, leafNames(scrub))

	degraded := pools[1]
	assert.Equal(t, StateDegraded, degraded.State)
	assert.Equal(t, ScanNone, degraded.ScanState)
	assert.Equal(t, int64(1203), degraded.TotalErrors)
	assert.Equal(t, StateFaulted, degraded.Vdevs[3].State)
}

func leafNames(p *PoolHealth) []string {
	var names []string
	for _, v := range p.Leaves() {
		names = append(names, v.Name)
	}
	return names
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(7), parseCount("7"))
	assert.Equal(t, int64(1200), parseCount("1.2K"))
	assert.Equal(t, int64(3000000), parseCount("3M"))
	assert.Equal(t, int64(0), parseCount("-"))
}

type ProberTestSuite struct {
	suite.Suite

	fake *probe.Fake
}

func (suite *ProberTestSuite) SetupTest() {
	logging.Discard()
	suite.fake = probe.NewFake().
		On("zpool list -H -o name", "tank\nfast\n", 0).
		On("zpool list -H -o health tank", "ONLINE\n", 0).
		On("zpool status -vL tank", tankScrubbing, 0).
		On("zpool list -H -o health fast", "DEGRADED\n", 0).
		On("zpool status -vL fast", fastResilver, 0)
}

func (suite *ProberTestSuite) TestSnapshotAll() {
	reports, err := NewProber(suite.fake, nil).Snapshot(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(reports, 2)
	suite.Equal(PoolReport{Name: "tank", Token: "ONLINE", Status: tankScrubbing}, reports[0])
	suite.Equal("DEGRADED", reports[1].Token)
}

func (suite *ProberTestSuite) TestSnapshotConfigured() {
	reports, err := NewProber(suite.fake, []string{"fast", "gone", "fast"}).Snapshot(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(reports, 2)
	suite.Equal("fast", reports[0].Name)
	suite.Equal(PoolReport{Name: "gone"}, reports[1])
	suite.Equal(health.Unknown, ClassifyPool(reports[1].Token, reports[1].Status).State)
}

func (suite *ProberTestSuite) TestZpoolMissing() {
	_, err := NewProber(probe.NewFake(), nil).Snapshot(context.Background())
	suite.ErrorIs(err, fault.ErrProbeUnavailable)
}

func (suite *ProberTestSuite) TestNoPools() {
	f := probe.NewFake().On("zpool list -H -o name", "", 0)
	reports, err := NewProber(f, nil).Snapshot(context.Background())
	suite.NoError(err)
	suite.Empty(reports)
	suite.Equal(health.Unavail, ClassifyPools(reports).State)
}

func TestProber(t *testing.T) {
	suite.Run(t, new(ProberTestSuite))
}
