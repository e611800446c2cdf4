package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/voxelmerge/internal/config"
)

// Storage handles the assets directory: the saved config, block lists and
// block textures.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Storage{dir: dir, log: log}
	for _, d := range []string{dir, s.BlockListDir(), s.TextureDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return s, nil
}

func (s *Storage) Dir() string { return s.dir }

// BlockListDir holds block lists.
func (s *Storage) BlockListDir() string { return filepath.Join(s.dir, "blockIDlists") }

// BlockList is the default block list.
func (s *Storage) BlockList() string { return filepath.Join(s.BlockListDir(), "blocks.txt") }

// TextureDir holds downloaded block textures.
func (s *Storage) TextureDir() string { return filepath.Join(s.dir, "textures") }

func (s *Storage) configPath() string { return filepath.Join(s.dir, "config.json") }

// LoadConfig reads config.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := s.configPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	s.log.Info("loaded config from file", "path", path)
	return nil
}

// SaveConfig writes cfg to config.json atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return WriteFile(s.configPath(), append(data, '\n'))
}

// WriteFile writes data atomically using a temp file + rename.
func WriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
