// Command gopiece downloads a single-file torrent to disk: parse the
// metainfo, announce to its tracker, then hand the resulting peer list to
// the download engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmccoy/gopiece/p2p"
	"github.com/cmccoy/gopiece/progress"
	"github.com/cmccoy/gopiece/torrentfile"
	"github.com/cmccoy/gopiece/tracker"
	"github.com/sirupsen/logrus"
)

const (
	defaultPort   = 6881
	defaultPeerID = "-RT0001-123456012345"
)

var (
	torrentPath = flag.String("torrent", "", "path to a .torrent file")
	outputPath  = flag.String("out", "", "output file path (defaults to the torrent's name field)")
	port        = flag.Int("port", defaultPort, "local port advertised to the tracker")
	peerIDFlag  = flag.String("peer-id", defaultPeerID, "20-byte peer id advertised to peers and the tracker")
	verbose     = flag.Bool("debug", false, "enable debug logging")
)

func parsePeerID(s string) ([20]byte, error) {
	var id [20]byte
	if len(s) != 20 {
		return id, fmt.Errorf("peer id must be exactly 20 bytes, got %d", len(s))
	}
	copy(id[:], s)
	return id, nil
}

func run() error {
	flag.Parse()

	// p2p and tracker log through the standard logrus logger, so the
	// level must be set there, not on a private instance.
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *torrentPath == "" {
		return fmt.Errorf("usage: gopiece -torrent <file.torrent> [-out <path>] [-port %d]", defaultPort)
	}

	tf, err := torrentfile.Open(*torrentPath)
	if err != nil {
		return fmt.Errorf("reading torrent file: %w", err)
	}

	peerID, err := parsePeerID(*peerIDFlag)
	if err != nil {
		return fmt.Errorf("invalid -peer-id: %w", err)
	}

	out := *outputPath
	if out == "" {
		out = filepath.Join(".", tf.Name)
	}

	trackerClient := tracker.New()
	peers, err := trackerClient.Announce(tracker.Request{
		AnnounceURL: tf.Announce,
		InfoHash:    tf.InfoHash,
		PeerID:      peerID,
		Port:        uint16(*port),
		Left:        tf.Length,
	})
	if err != nil {
		return fmt.Errorf("announcing to tracker: %w", err)
	}
	logrus.WithField("peers", len(peers)).Info("received peer list from tracker")

	bar := progress.New(int64(tf.Length), tf.Name)

	cfg := tf.ToConfig(peerID, out)
	orch := p2p.New(cfg, peers, bar)
	if err := orch.Download(); err != nil {
		return fmt.Errorf("downloading %s: %w", tf.Name, err)
	}

	logrus.WithField("path", out).Info("download complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
