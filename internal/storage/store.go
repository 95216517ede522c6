package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	metadataFile = "metadata.json"
	catalogFile  = "catalog.db"
)

// Store lays out one directory per run under baseDir, each holding a
// metadata.json, and keeps a SQLite catalog of every run it saved.
type Store struct {
	baseDir string
	catalog *Catalog
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Open creates the base directory and opens the run catalog.
func (s *Store) Open(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}
	c, err := OpenCatalog(ctx, filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return err
	}
	s.catalog = c
	return nil
}

func (s *Store) Close() error {
	if s.catalog == nil {
		return nil
	}
	err := s.catalog.Close()
	s.catalog = nil
	return err
}

func (s *Store) Catalog() *Catalog { return s.catalog }

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Command   string             `json:"command"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Particles int                `json:"particles"`
	Lx        float64            `json:"lx"`
	Ly        float64            `json:"ly"`
	Steps     int                `json:"steps"`
	Params    map[string]float64 `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Create assigns an ID when meta has none and makes the run directory.
func (s *Store) Create(meta *RunMetadata) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Model, meta.Timestamp.UnixNano())
	}
	dir := s.RunDir(meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) RunDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Save writes metadata.json for a created run and records it in the
// catalog when one is open.
func (s *Store) Save(ctx context.Context, meta *RunMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	metaFile, err := os.Create(filepath.Join(s.RunDir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	if s.catalog != nil {
		if err := s.catalog.Record(ctx, meta); err != nil {
			return fmt.Errorf("failed to record run %s: %w", meta.ID, err)
		}
	}
	return nil
}

// List returns the catalog entries when open, otherwise it scans run
// directories for metadata files.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	if s.catalog != nil {
		return s.catalog.List(ctx)
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
