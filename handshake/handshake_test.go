package handshake

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerializeKnownBytes(t *testing.T) {
	var infoHash, peerID [20]byte
	for i := range infoHash {
		infoHash[i] = 0xAA
		peerID[i] = 0xBB
	}
	h := New(infoHash, peerID)
	buf := h.Serialize()

	require.Len(t, buf, 68)

	want := []byte{19}
	want = append(want, []byte("BitTorrent protocol")...)
	want = append(want, make([]byte, 8)...)
	want = append(want, infoHash[:]...)
	want = append(want, peerID[:]...)
	require.Equal(t, want, buf)
}

func TestRoundTrip(t *testing.T) {
	var infoHash, peerID [20]byte
	copy(infoHash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(peerID[:], "bbbbbbbbbbbbbbbbbbbb")

	h := New(infoHash, peerID)
	got, err := Read(bytes.NewReader(h.Serialize()))
	require.NoError(t, err)
	require.Equal(t, h.Pstr, got.Pstr)
	require.Equal(t, h.InfoHash, got.InfoHash)
	require.Equal(t, h.PeerID, got.PeerID)
}

func TestReadRejectsZeroLengthPstr(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0}))
	require.Error(t, err)
}

// recordingConn wraps a bytes.Reader with a SetReadDeadline that records
// every deadline it's given, so a test can assert each individual read
// gets its own fresh 3-second budget rather than one shared deadline.
type recordingConn struct {
	*bytes.Reader
	deadlines []time.Time
}

func (c *recordingConn) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

func TestReadAppliesFreshDeadlineToEachIndividualRead(t *testing.T) {
	var infoHash, peerID [20]byte
	copy(infoHash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(peerID[:], "bbbbbbbbbbbbbbbbbbbb")
	h := New(infoHash, peerID)

	conn := &recordingConn{Reader: bytes.NewReader(h.Serialize())}
	_, err := Read(conn)
	require.NoError(t, err)

	// One deadline for the pstr-length byte, one for the rest of the frame.
	require.Len(t, conn.deadlines, 2)
}
