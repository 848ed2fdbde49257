package peer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	buf := []byte{
		127, 0, 0, 1, 0x1A, 0xE1, // 127.0.0.1:6881
		10, 0, 0, 5, 0x1A, 0xE2, // 10.0.0.5:6882
	}
	peers, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, "127.0.0.1:6881", peers[0].String())
	require.Equal(t, "10.0.0.5:6882", peers[1].String())
}

func TestUnmarshalRejectsMalformedLength(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	require.Error(t, err)
}
