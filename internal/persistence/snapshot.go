package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/dtosim/internal/engine"
)

// header is written as the first line of an encoded snapshot so a reader
// can identify it without decoding the body.
type header struct {
	Format int    `json:"format"`
	Seed   uint64 `json:"seed"`
	Tick   uint64 `json:"tick"`
}

// EncodeSnapshot writes snap to w as a zstd-compressed header line
// followed by the JSON body.
func EncodeSnapshot(w io.Writer, snap *engine.Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	hb, _ := json.Marshal(header{Format: snap.Format, Seed: snap.Seed, Tick: snap.Tick})
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (*engine.Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if h.Format != engine.SnapshotFormat {
		return nil, fmt.Errorf("snapshot format %d, want %d", h.Format, engine.SnapshotFormat)
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	if snap.Tick != h.Tick || snap.Seed != h.Seed {
		return nil, fmt.Errorf("snapshot header tick %d seed %d does not match body", h.Tick, h.Seed)
	}
	return &snap, nil
}

// WriteSnapshotFile encodes snap to path, replacing the file atomically.
func WriteSnapshotFile(path string, snap *engine.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := EncodeSnapshot(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadSnapshotFile decodes the snapshot stored at path.
func ReadSnapshotFile(path string) (*engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSnapshot(f)
}
