package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "zpool", Cmd("zpool").String())
	assert.Equal(t, "zpool list -H -o name", Cmd("zpool", "list", "-H", "-o", "name").String())
}

func TestExecMissingTool(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), Cmd("baylight-no-such-tool-xyz"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrProbeUnavailable)
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, PathExists(dir))
	assert.False(t, PathExists(dir+"/missing"))
}

func TestFake(t *testing.T) {
	boom := errors.New("boom")
	f := NewFake().
		On("smartctl -H /dev/sda", "PASSED", 0).
		Fail("ping -c 1 -W 3 8.8.8.8", boom).
		WithPath("/dev/sda")

	res, err := f.Run(context.Background(), Cmd("smartctl", "-H", "/dev/sda"))
	require.NoError(t, err)
	assert.Equal(t, "PASSED", res.Stdout)

	_, err = f.Run(context.Background(), Cmd("ping", "-c", "1", "-W", "3", "8.8.8.8"))
	assert.ErrorIs(t, err, boom)

	_, err = f.Run(context.Background(), Cmd("zpool", "list"))
	assert.ErrorIs(t, err, fault.ErrProbeUnavailable)

	assert.True(t, f.Exists("/dev/sda"))
	assert.False(t, f.Exists("/dev/sdb"))
	assert.Equal(t, []string{
		"smartctl -H /dev/sda",
		"ping -c 1 -W 3 8.8.8.8",
		"zpool list",
	}, f.Calls())
}
