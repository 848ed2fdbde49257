package tracker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/require"
)

func TestAnnounceDecodesCompactPeerList(t *testing.T) {
	peersBin := []byte{127, 0, 0, 1, 0x1A, 0xE1, 127, 0, 0, 2, 0x1A, 0xE2} // two peers, ports 6881/6882

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("compact"))
		require.Equal(t, "0", r.URL.Query().Get("uploaded"))
		bencode.Marshal(w, response{Interval: 1800, Peers: string(peersBin)})
	}))
	defer srv.Close()

	c := New()
	peers, err := c.Announce(Request{
		AnnounceURL: srv.URL,
		InfoHash:    [20]byte{1},
		PeerID:      [20]byte{2},
		Port:        6881,
		Left:        1024,
	})
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, "127.0.0.1", peers[0].IP.String())
	require.EqualValues(t, 6881, peers[0].Port)
	require.Equal(t, "127.0.0.2", peers[1].IP.String())
	require.EqualValues(t, 6882, peers[1].Port)
}

func TestAnnounceReturnsFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bencode.Marshal(w, response{Failure: "info_hash missing"})
	}))
	defer srv.Close()

	c := New()
	_, err := c.Announce(Request{AnnounceURL: srv.URL})
	require.Error(t, err)
}

func TestAnnounceSurfacesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Announce(Request{AnnounceURL: srv.URL})
	require.Error(t, err)
}
