// Package torrentfile decodes a .torrent metainfo file into the plain data
// the rest of the program needs: the tracker announce URL and the
// info-hash/piece-hash data p2p.Config is built from.
package torrentfile

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"github.com/cmccoy/gopiece/p2p"
	"github.com/jackpal/bencode-go"
)

const hashLen = 20

type bencodeInfo struct {
	Pieces      string `bencode:"pieces"`
	PieceLength int    `bencode:"piece length"`
	Length      int    `bencode:"length"`
	Name        string `bencode:"name"`
}

type bencodeTorrent struct {
	Announce string      `bencode:"announce"`
	Info     bencodeInfo `bencode:"info"`
}

// TorrentFile is the decoded, hash-resolved form of a metainfo file.
type TorrentFile struct {
	Announce    string
	InfoHash    [20]byte
	PieceHashes [][20]byte
	PieceLength int
	Length      int
	Name        string
}

// Open reads and decodes a .torrent file from disk.
func Open(path string) (TorrentFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return TorrentFile{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (TorrentFile, error) {
	bto := bencodeTorrent{}
	if err := bencode.Unmarshal(r, &bto); err != nil {
		return TorrentFile{}, fmt.Errorf("decoding metainfo: %w", err)
	}

	infoHash, err := bto.Info.toInfoHash()
	if err != nil {
		return TorrentFile{}, err
	}

	pieceHashes, err := bto.Info.toPieceHashes()
	if err != nil {
		return TorrentFile{}, err
	}

	return TorrentFile{
		Announce:    bto.Announce,
		InfoHash:    infoHash,
		PieceHashes: pieceHashes,
		PieceLength: bto.Info.PieceLength,
		Length:      bto.Info.Length,
		Name:        bto.Info.Name,
	}, nil
}

// toInfoHash re-encodes the decoded info fields (pieces, piece length,
// length, name) and hashes the result. This reproduces the original bytes
// only when the info dictionary holds no other keys: any other key is
// dropped on decode and is not part of the hash.
func (i *bencodeInfo) toInfoHash() ([20]byte, error) {
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, *i); err != nil {
		return [20]byte{}, fmt.Errorf("re-encoding info dict: %w", err)
	}
	return sha1.Sum(buf.Bytes()), nil
}

// toPieceHashes splits the concatenated pieces string into its 20-byte
// SHA-1 hashes, one per piece, in order.
func (i *bencodeInfo) toPieceHashes() ([][20]byte, error) {
	data := []byte(i.Pieces)
	if len(data)%hashLen != 0 {
		return nil, fmt.Errorf("malformed pieces field: length %d is not a multiple of %d", len(data), hashLen)
	}

	numHashes := len(data) / hashLen
	hashes := make([][20]byte, numHashes)
	for n := 0; n < numHashes; n++ {
		start := n * hashLen
		copy(hashes[n][:], data[start:start+hashLen])
	}
	return hashes, nil
}

// ToConfig builds a p2p.Config from the decoded metainfo, the local peer ID,
// and the output path the orchestrator should write to.
func (tf TorrentFile) ToConfig(peerID [20]byte, outputPath string) p2p.Config {
	return p2p.Config{
		PeerID:      peerID,
		InfoHash:    tf.InfoHash,
		PieceHashes: tf.PieceHashes,
		PieceLength: tf.PieceLength,
		Length:      tf.Length,
		Name:        outputPath,
	}
}
