// Package p2p implements the orchestrator and per-peer worker pool: it
// seeds the task queue from the metainfo, spawns one worker per peer,
// waits for all of them to finish, and concatenates the verified pieces
// into the final output file.
package p2p

import (
	"fmt"
	"os"

	"github.com/cmccoy/gopiece/client"
	"github.com/cmccoy/gopiece/message"
	"github.com/cmccoy/gopiece/peer"
	"github.com/cmccoy/gopiece/progress"
	"github.com/cmccoy/gopiece/queue"
	"github.com/cmccoy/gopiece/store"
	"github.com/cmccoy/gopiece/task"
	"github.com/sirupsen/logrus"
)

const (
	// MaxBlockSize is the largest number of bytes a request can ask for
	MaxBlockSize = 16 * 1024
	// MaxBacklog is the number of unfulfilled requests a client can have in its pipeline
	MaxBacklog = 5
)

// Config holds the metainfo-derived data the orchestrator needs to run a
// download; it is shared read-only across every worker goroutine.
type Config struct {
	PeerID      [20]byte
	InfoHash    [20]byte
	PieceHashes [][20]byte
	PieceLength int
	Length      int
	Name        string
}

// Orchestrator populates the task queue, spawns one worker per peer, and
// concatenates the resulting piece cache into the final output file.
type Orchestrator struct {
	Config   Config
	Peers    []peer.Peer
	Queue    *queue.Queue
	Store    *store.Store
	Progress progress.Reporter
	log      *logrus.Entry
}

// New builds an Orchestrator for the given config and peer list, seeding
// the task queue with one task per piece in the metainfo.
func New(cfg Config, peers []peer.Peer, reporter progress.Reporter) *Orchestrator {
	if reporter == nil {
		reporter = progress.Noop{}
	}
	q := queue.New(len(cfg.PieceHashes))
	for index, hash := range cfg.PieceHashes {
		length := pieceLength(cfg, index)
		q.Push(task.New(index, length, hash))
	}
	return &Orchestrator{
		Config:   cfg,
		Peers:    peers,
		Queue:    q,
		Store:    store.New(cfg.Name),
		Progress: reporter,
		log:      logrus.WithField("torrent", cfg.Name),
	}
}

func pieceBounds(cfg Config, index int) (begin, end int) {
	begin = index * cfg.PieceLength
	end = begin + cfg.PieceLength
	if end > cfg.Length {
		end = cfg.Length
	}
	return begin, end
}

func pieceLength(cfg Config, index int) int {
	begin, end := pieceBounds(cfg, index)
	return end - begin
}

type pieceProgress struct {
	index      int
	client     *client.Client
	buf        []byte
	downloaded int
	requested  int
	backlog    int
	reporter   progress.Reporter
}

func (state *pieceProgress) readMessage() error {
	msg, err := state.client.Read() // this call blocks
	if err != nil {
		return err
	}

	// keep-alive
	if msg == nil {
		return nil
	}

	switch msg.ID {
	case message.MsgUnchoke:
		if state.client.State == client.StateBusy {
			return nil // duplicate Unchoke
		}
		state.client.State = client.StateBusy
	case message.MsgChoke:
		state.client.State = client.StatePreparing
	case message.MsgHave:
		index, err := msg.ParseHave()
		if err != nil {
			return err
		}
		state.client.Bitfield.SetPiece(index)
	case message.MsgPiece:
		n, err := msg.ParsePiece(state.index, state.buf)
		if err != nil {
			return err
		}
		state.downloaded += n
		state.backlog--
		state.reporter.Inc(n)
	}

	return nil
}

func attemptDownloadPiece(c *client.Client, t task.Task, reporter progress.Reporter) ([]byte, error) {
	state := pieceProgress{
		index:    t.Index,
		client:   c,
		buf:      make([]byte, t.PieceLength),
		reporter: reporter,
	}

	// Each readMessage applies its own per-read deadline; no deadline
	// spans the whole piece.
	for state.downloaded < t.PieceLength {
		// If unchoked, send requests until we have enough unfulfilled requests
		if state.client.State == client.StateBusy {
			for state.backlog < MaxBacklog && state.requested < t.PieceLength {
				blockSize := MaxBlockSize
				// Last block might be shorter than the typical block
				if t.PieceLength-state.requested < blockSize {
					blockSize = t.PieceLength - state.requested
				}

				err := c.SendRequest(t.Index, state.requested, blockSize)
				if err != nil {
					return nil, err
				}
				state.backlog++
				state.requested += blockSize
			}
		}

		if err := state.readMessage(); err != nil {
			return nil, err
		}
	}

	return state.buf, nil
}

// startDownloadWorker is one peer worker's entire lifecycle: connect,
// handshake, then loop pulling tasks from the queue until it empties or a
// fatal error kills the connection.
func (o *Orchestrator) startDownloadWorker(p peer.Peer) {
	log := o.log.WithField("peer", p.String())

	c, err := client.New(p, o.Config.PeerID, o.Config.InfoHash)
	if err != nil {
		log.WithError(err).Debug("could not handshake, disconnecting")
		return
	}
	defer c.Conn.Close()
	log.Debug("completed handshake")

	c.SendUnchoke()
	c.SendInterested()

	for {
		t, ok := o.Queue.Pop()
		if !ok {
			log.Debug("task queue empty, exiting")
			return
		}

		if !c.Bitfield.HasPiece(t.Index) {
			o.Queue.Push(t) // peer doesn't have this piece; put it back and try another
			continue
		}

		buf, err := attemptDownloadPiece(c, t, o.Progress)
		if err != nil {
			log.WithError(err).WithField("piece", t.Index).Warn("peer disconnected mid-piece, returning task")
			o.Queue.Push(t)
			return
		}

		if err := o.Store.AppendBlock(t.Index, buf); err != nil {
			log.WithError(err).WithField("piece", t.Index).Error("failed to write piece cache")
			// A partial write must not survive into the next attempt.
			if resetErr := o.Store.Reset(t.Index); resetErr != nil {
				log.WithError(resetErr).WithField("piece", t.Index).Error("failed to reset partial cache file")
			}
			o.Queue.Push(t)
			return
		}

		if err := o.Store.Verify(t.Index, t.ExpectedHash); err != nil {
			log.WithField("piece", t.Index).Warn("piece failed integrity check, retrying")
			if resetErr := o.Store.Reset(t.Index); resetErr != nil {
				log.WithError(resetErr).WithField("piece", t.Index).Error("failed to reset stale cache file")
			}
			o.Queue.Push(t)
			continue
		}

		c.SendHave(t.Index)
		log.WithField("piece", t.Index).Debug("piece verified")
	}
}

// Download runs the full orchestration: spawn one worker per peer, wait
// for all of them to finish, then concatenate the verified piece cache
// into the final output file.
func (o *Orchestrator) Download() error {
	o.log.WithField("peers", len(o.Peers)).Info("starting download")

	done := make(chan struct{})
	for _, p := range o.Peers {
		go func(p peer.Peer) {
			o.startDownloadWorker(p)
			done <- struct{}{}
		}(p)
	}

	for range o.Peers {
		<-done
	}

	return o.concat()
}

// concat assembles the final output file from the per-piece cache,
// failing loudly if any piece's cache file is missing or the wrong size.
//
// The cache directory and the final output file share the same path, so
// the output is assembled into a temp file first; the cache directory is
// removed and the temp file renamed into place only once every piece has
// copied successfully.
func (o *Orchestrator) concat() error {
	staging, err := createStagingFile(o.Config.Name)
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	stagingPath := staging.Name()
	defer os.Remove(stagingPath) // no-op once renamed into place

	for index := range o.Config.PieceHashes {
		want := pieceLength(o.Config, index)
		size, err := o.Store.Stat(index)
		if err != nil {
			staging.Close()
			return fmt.Errorf("piece %d missing from cache at concat time: %w", index, err)
		}
		if int(size) != want {
			staging.Close()
			return fmt.Errorf("piece %d has wrong cache size: want %d, got %d", index, want, size)
		}

		f, err := o.Store.Open(index)
		if err != nil {
			staging.Close()
			return fmt.Errorf("opening cache file for piece %d: %w", index, err)
		}
		if _, err := copyAndClose(staging, f); err != nil {
			staging.Close()
			return fmt.Errorf("writing piece %d to output: %w", index, err)
		}
	}

	if err := staging.Close(); err != nil {
		return fmt.Errorf("closing staging file: %w", err)
	}
	if err := o.Store.Cleanup(); err != nil {
		return fmt.Errorf("removing cache directory: %w", err)
	}
	if err := os.Rename(stagingPath, o.Config.Name); err != nil {
		return fmt.Errorf("renaming staging file to %s: %w", o.Config.Name, err)
	}

	return nil
}
