// Package client implements one peer's TCP connection and the connect →
// handshake → bitfield-exchange steps of the protocol state machine. The
// request/piece-assembly loop that drives a Client once connected lives in
// package p2p.
package client

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/cmccoy/gopiece/bitfield"
	"github.com/cmccoy/gopiece/handshake"
	"github.com/cmccoy/gopiece/message"
	"github.com/cmccoy/gopiece/peer"
)

// State is a peer connection's position in the protocol state machine:
// Preparing before the peer has unchoked us, Busy once we are actively
// requesting blocks.
type State int

const (
	// StatePreparing is pre-handshake, or post-handshake awaiting Unchoke.
	StatePreparing State = iota
	// StateBusy is unchoked and actively requesting.
	StateBusy
)

// Client is a TCP connection with a peer
type Client struct {
	Conn     net.Conn
	State    State
	Bitfield bitfield.Bitfield
	peer     peer.Peer
	infoHash [20]byte
	peerID   [20]byte
}

func completeHandshake(conn net.Conn, infoHash, peerID [20]byte) (*handshake.Handshake, error) {
	// Covers the write; handshake.Read sets its own per-read deadlines.
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{}) // Disable deadline

	req := handshake.New(infoHash, peerID)
	_, err := conn.Write(req.Serialize())
	if err != nil {
		return nil, err
	}

	res, err := handshake.Read(conn)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(res.InfoHash[:], infoHash[:]) {
		return nil, fmt.Errorf("expected info hash %x, got %x", infoHash, res.InfoHash)
	}

	return res, nil
}

func receiveBitfield(conn net.Conn) (bitfield.Bitfield, error) {
	// message.Read sets its own per-read deadlines.
	msg, err := message.Read(conn)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("expected bitfield, got %s", msg)
	}
	if msg.ID != message.MsgBitfield {
		return nil, fmt.Errorf("expected bitfield, got ID %d", msg.ID)
	}

	return msg.Payload, nil
}

// New connects with a peer, completes a handshake, and receives a bitfield;
// returns an error if any of those fail.
func New(p peer.Peer, peerID, infoHash [20]byte) (*Client, error) {
	conn, err := net.DialTimeout("tcp", p.String(), 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p, err)
	}

	_, err = completeHandshake(conn, infoHash, peerID)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake with %s: %w", p, err)
	}

	bf, err := receiveBitfield(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bitfield from %s: %w", p, err)
	}

	return &Client{
		Conn:     conn,
		State:    StatePreparing,
		Bitfield: bf,
		peer:     p,
		infoHash: infoHash,
		peerID:   peerID,
	}, nil
}

// Read reads and consumes a message from the connection
func (c *Client) Read() (*message.Message, error) {
	msg, err := message.Read(c.Conn)
	return msg, err
}

// SendRequest sends a Request message to the peer
func (c *Client) SendRequest(index, begin, length int) error {
	msg := message.NewRequest(index, begin, length)
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

// SendInterested sends an Interested message to the peer
func (c *Client) SendInterested() error {
	msg := message.Message{ID: message.MsgInterested}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

// SendNotInterested sends a NotInterested message to the peer
func (c *Client) SendNotInterested() error {
	msg := message.Message{ID: message.MsgNotInterested}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

// SendUnchoke sends an Unchoke message to the peer
func (c *Client) SendUnchoke() error {
	msg := message.Message{ID: message.MsgUnchoke}
	_, err := c.Conn.Write(msg.Serialize())
	return err
}

// SendHave sends a Have message to the peer
func (c *Client) SendHave(index int) error {
	msg := message.NewHave(index)
	_, err := c.Conn.Write(msg.Serialize())
	return err
}
