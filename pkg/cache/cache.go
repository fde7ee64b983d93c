// Package cache persists the last successful build to disk so a restart can
// serve a graph immediately instead of waiting for the first crawl.
package cache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
)

const (
	cacheFileName = "atlas_build.cache"
	formatVersion = 1
)

// Store writes and reads the cached build file. The on-disk format is:
// [Version:1][DataLen:4][Data:N snappy][Checksum:4 over compressed data]
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the cache directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, cacheFileName)
}

// Save writes data atomically: a temp file is written, synced, then renamed
// over the previous cache.
func (s *Store) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed := snappy.Encode(nil, data)
	checksum := crc32.ChecksumIEEE(compressed)

	tmp, err := os.CreateTemp(s.dir, cacheFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	if err := w.WriteByte(formatVersion); err != nil {
		tmp.Close()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(compressed))); err != nil {
		tmp.Close()
		return err
	}
	if _, err := w.Write(compressed); err != nil {
		tmp.Close()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, checksum); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.Path())
}

// Load reads and verifies the cached build. A missing file returns
// (nil, nil); a corrupt file returns an error so the caller can rebuild.
func (s *Store) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read cache version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported cache version %d", version)
	}

	var dataLen uint32
	if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
		return nil, fmt.Errorf("read cache length: %w", err)
	}

	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(reader, compressed); err != nil {
		return nil, fmt.Errorf("read cache body: %w", err)
	}

	var checksum uint32
	if err := binary.Read(reader, binary.BigEndian, &checksum); err != nil {
		return nil, fmt.Errorf("read cache checksum: %w", err)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, fmt.Errorf("cache checksum mismatch")
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress cache: %w", err)
	}
	return data, nil
}

// Remove deletes the cache file if present.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
