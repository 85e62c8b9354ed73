// Package flatindex is an in-process, exhaustive-scan similarity index
// persisted as a single JSON snapshot. It trades query speed for full
// historical recall: duplicate checking needs every entry ever inserted,
// not an eviction window, and the corpus grows by at most a handful of
// entries per run.
package flatindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"newsgate/pkg/embedding"
	"newsgate/repository"
)

type entry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

type snapshot struct {
	Dimension int     `json:"dimension"`
	Entries   []entry `json:"entries"`
}

// Index implements repository.SimilarityIndex over a flat in-memory slice
// with a file snapshot.
type Index struct {
	path   string
	dim    int
	logger *zap.Logger

	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
	dirty   bool
}

func New(path string, dimension int, logger *zap.Logger) *Index {
	return &Index{
		path:   path,
		dim:    dimension,
		logger: logger,
		byID:   make(map[string]int),
	}
}

// Load reads the snapshot file. A missing file is an empty index, not an
// error. A snapshot written for a different dimension cannot be reused and
// must be rebuilt.
func (x *Index) Load(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	data, err := os.ReadFile(x.path)
	if os.IsNotExist(err) {
		x.logger.Info("no index snapshot found, starting empty",
			zap.String("path", x.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode index snapshot %s: %w", x.path, err)
	}
	if snap.Dimension != x.dim {
		return fmt.Errorf("index snapshot %s has dimension %d, expected %d: rebuild required",
			x.path, snap.Dimension, x.dim)
	}

	x.entries = snap.Entries
	x.byID = make(map[string]int, len(snap.Entries))
	for i, e := range snap.Entries {
		x.byID[e.ID] = i
	}
	x.dirty = false

	x.logger.Info("loaded index snapshot",
		zap.String("path", x.path),
		zap.Int("entries", len(x.entries)))
	return nil
}

// Persist writes the snapshot with write-to-temp-then-rename discipline so
// that a crash mid-write never clobbers the previous durable snapshot.
func (x *Index) Persist(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.dirty {
		return nil
	}

	snap := snapshot{Dimension: x.dim, Entries: x.entries}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}

	dir := filepath.Dir(x.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(x.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, x.path); err != nil {
		return fmt.Errorf("failed to replace index snapshot: %w", err)
	}

	x.dirty = false
	x.logger.Debug("persisted index snapshot",
		zap.String("path", x.path),
		zap.Int("entries", len(x.entries)))
	return nil
}

// Insert adds an entry. Inserting an id that is already present is a
// no-op so that a crash between insert and the history append can be
// retried without corrupting state.
func (x *Index) Insert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != x.dim {
		return &repository.DimensionMismatchError{ID: id, Got: len(vec), Want: x.dim}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.byID[id]; ok {
		return nil
	}

	cp := make([]float32, len(vec))
	copy(cp, vec)
	x.byID[id] = len(x.entries)
	x.entries = append(x.entries, entry{ID: id, Vector: cp})
	x.dirty = true
	return nil
}

// QueryNearest scans every entry and returns the top k by cosine
// similarity, highest first.
func (x *Index) QueryNearest(ctx context.Context, vec []float32, k int) ([]repository.Neighbor, error) {
	if len(vec) != x.dim {
		return nil, &repository.DimensionMismatchError{Got: len(vec), Want: x.dim}
	}
	if k <= 0 {
		k = 1
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}

	neighbors := make([]repository.Neighbor, 0, len(x.entries))
	for _, e := range x.entries {
		neighbors = append(neighbors, repository.Neighbor{
			ID:         e.ID,
			Similarity: embedding.CosineSimilarity(vec, e.Vector),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Len reports the number of indexed entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
