// Package tracker announces a download to an HTTP tracker and decodes the
// compact peer list from its response.
package tracker

import (
	"bytes"
	"fmt"

	"github.com/cmccoy/gopiece/peer"
	"github.com/go-resty/resty/v2"
	"github.com/jackpal/bencode-go"
	"github.com/sirupsen/logrus"
)

// Request holds everything an announce call needs: the torrent's announce
// URL, info-hash and remaining length (Left), and the client's peer-id and
// port.
type Request struct {
	AnnounceURL string
	InfoHash    [20]byte
	PeerID      [20]byte
	Port        uint16
	Left        int
}

type response struct {
	Interval int    `bencode:"interval"`
	Peers    string `bencode:"peers"`
	Failure  string `bencode:"failure reason"`
}

// Client announces to a single HTTP tracker.
type Client struct {
	http *resty.Client
	log  *logrus.Entry
}

// New builds a tracker Client backed by resty's HTTP client.
func New() *Client {
	return &Client{
		http: resty.New(),
		log:  logrus.WithField("component", "tracker"),
	}
}

// Announce requests a peer list from the tracker named in req.AnnounceURL.
func (c *Client) Announce(req Request) ([]peer.Peer, error) {
	resp, err := c.http.R().
		SetQueryParam("info_hash", string(req.InfoHash[:])).
		SetQueryParam("peer_id", string(req.PeerID[:])).
		SetQueryParam("port", fmt.Sprintf("%d", req.Port)).
		SetQueryParam("uploaded", "0").
		SetQueryParam("downloaded", "0").
		SetQueryParam("left", fmt.Sprintf("%d", req.Left)).
		SetQueryParam("compact", "1").
		Get(req.AnnounceURL)
	if err != nil {
		return nil, fmt.Errorf("announcing to %s: %w", req.AnnounceURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tracker %s returned status %d", req.AnnounceURL, resp.StatusCode())
	}

	var tr response
	if err := bencode.Unmarshal(bytes.NewReader(resp.Body()), &tr); err != nil {
		return nil, fmt.Errorf("decoding tracker response: %w", err)
	}
	if tr.Failure != "" {
		return nil, fmt.Errorf("tracker refused request: %s", tr.Failure)
	}

	peers, err := peer.Unmarshal([]byte(tr.Peers))
	if err != nil {
		return nil, fmt.Errorf("decoding peer list: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"peers":    len(peers),
		"interval": tr.Interval,
	}).Debug("tracker announce complete")

	return peers, nil
}
