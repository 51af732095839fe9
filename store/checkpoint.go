package store

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mkowalik/gradnet/network"
	"github.com/mkowalik/gradnet/tensor"
)

// CheckpointStore keeps model archives in a directory and an expiring LRU
// of recently saved or read archive bytes, so repeated loads of the same
// checkpoint skip the disk.
type CheckpointStore struct {
	dir   string
	cache *expirable.LRU[string, []byte]
}

func NewCheckpointStore(dir string, maxCached int, ttl time.Duration) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointStore{
		dir:   dir,
		cache: expirable.NewLRU[string, []byte](maxCached, nil, ttl),
	}, nil
}

func (s *CheckpointStore) path(name string) string {
	return filepath.Join(s.dir, name+".net")
}

// Save archives the network under name, replacing any previous checkpoint
// with the same name.
func (s *CheckpointStore) Save(n *network.Network, name string) error {
	var buf bytes.Buffer
	if err := n.WriteTo(&buf); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	s.cache.Add(name, buf.Bytes())
	return nil
}

// Load restores the named checkpoint into a fresh network.
func (s *CheckpointStore) Load(name string) (*network.Network, error) {
	payload, ok := s.cache.Get(name)
	if !ok {
		var err error
		payload, err = os.ReadFile(s.path(name))
		if err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", name, err)
		}
		s.cache.Add(name, payload)
	}

	n := network.New(name)
	if err := n.ReadFrom(tensor.NewScanner(bufio.NewReader(bytes.NewReader(payload)))); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return n, nil
}

// List returns the names of all stored checkpoints.
func (s *CheckpointStore) List() ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(s.dir, "*.net"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		base := filepath.Base(e)
		names = append(names, base[:len(base)-len(".net")])
	}
	return names, nil
}
