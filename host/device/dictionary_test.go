package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hidlight/protocol"
)

func TestParseDictionary(t *testing.T) {
	d, err := ParseDictionary("4 set_animation lamp=%c type=%c save=%c data=%*s\n2 get_config\n\n")
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{ID: 2, Name: "get_config"},
		{ID: 4, Name: "set_animation", Format: "lamp=%c type=%c save=%c data=%*s"},
	}, d.Entries)

	e, ok := d.Lookup("set_animation")
	require.True(t, ok)
	require.Equal(t, uint16(4), e.ID)

	_, ok = d.Lookup("get_lamp")
	require.False(t, ok)
}

func TestParseDictionaryErrors(t *testing.T) {
	_, err := ParseDictionary("identify\n")
	require.Error(t, err)

	_, err = ParseDictionary("x identify offset=%u\n")
	require.Error(t, err)
}

func TestDictionaryCheck(t *testing.T) {
	d, err := ParseDictionary("4 set_animation\n9 get_lamp lamp=%c\n")
	require.NoError(t, err)

	require.NoError(t, d.Check(map[string]uint16{"get_lamp": protocol.CmdGetLamp, "set_animation": protocol.CmdSetAnimation}))
	require.Error(t, d.Check(map[string]uint16{"get_lamp": 3}))
	require.Error(t, d.Check(map[string]uint16{"suspend": protocol.CmdSuspend}))
}

func TestClientDictionaryMatchesProtocol(t *testing.T) {
	c, _ := startDevice(t)

	d, err := c.Dictionary()
	require.NoError(t, err)
	require.NoError(t, d.Check(KnownCommands))
}
