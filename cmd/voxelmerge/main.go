package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/internal/blocks"
	"github.com/OCharnyshevich/voxelmerge/internal/config"
	"github.com/OCharnyshevich/voxelmerge/internal/mesh"
	"github.com/OCharnyshevich/voxelmerge/internal/pipeline"
	"github.com/OCharnyshevich/voxelmerge/internal/raster"
	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/internal/storage"
	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
)

func main() {
	cfg := config.DefaultConfig()

	flag.StringVar(&cfg.InputDir, "input", cfg.InputDir, "directory holding the source r.X.Z.mca files")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory the merged region files are written to")
	flag.StringVar(&cfg.Mesh, "mesh", cfg.Mesh, "mesh file (.obj, .gltf or .glb)")
	flag.StringVar(&cfg.Blocks, "blocks", cfg.Blocks, "block list (default <assets>/blockIDlists/blocks.txt)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of column workers")
	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "rasterizer: reference or batched")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.BoolVar(&cfg.Center, "center", cfg.Center, "move the mesh bounds centre to the origin")
	flag.Var(config.VecFlag{P: &cfg.ScaleTo}, "scale-to", "scale to this size x,y,z; zero components are left alone")
	flag.Var(config.VecFlag{P: &cfg.Scale}, "scale", "scale by x,y,z")
	flag.Var(config.VecFlag{P: &cfg.Rotate}, "rotate", "rotate by x,y,z degrees")
	flag.Var(config.VecFlag{P: &cfg.Translate}, "translate", "translate by x,y,z blocks")
	assets := flag.String("assets", "assets", "assets directory holding config.json, block lists and textures")
	saveConfig := flag.Bool("save-config", false, "write the effective configuration to <assets>/config.json")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := storage.New(*assets, log)
	if err != nil {
		log.Error("open assets", "error", err)
		os.Exit(1)
	}
	fromFile := config.DefaultConfig()
	if err := store.LoadConfig(fromFile); err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	config.Merge(cfg, fromFile, explicit)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		flag.Usage()
		os.Exit(2)
	}
	level, _ := cfg.Level()
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *saveConfig {
		if err := store.SaveConfig(cfg); err != nil {
			log.Error("save config", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, store, log); err != nil {
		log.Error("merge failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, store *storage.Storage, log *slog.Logger) error {
	m, err := mesh.Load(cfg.Mesh, log)
	if err != nil {
		return err
	}
	if err := transform(m, cfg); err != nil {
		return err
	}

	table, err := loadBlocks(cfg, store, log)
	if err != nil {
		return err
	}
	scene, dropped, err := m.Scene(table)
	if err != nil {
		return err
	}
	if dropped > 0 {
		log.Warn("dropped degenerate triangles", "count", dropped)
	}

	vol := pipeline.NewVolume(scene.Bounds())
	log.Info("mesh placed", "triangles", scene.Len(), "volume", vol.String())

	sink := report.NewLogSink(log)
	var strategy raster.Strategy
	switch cfg.Strategy {
	case config.StrategyBatched:
		strategy = raster.NewBatched(scene, vol.Sections, sink, 0)
	default:
		strategy = raster.NewReference(scene, vol.Sections, sink)
	}

	p, err := pipeline.New(pipeline.Options{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Volume:    vol,
		Strategy:  strategy,
		Workers:   cfg.Workers,
		Log:       log,
		Sink:      sink,
		Progress:  report.LogProgress(log, max(1, vol.ColumnCount()/20)),
	})
	if err != nil {
		return err
	}
	stats, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		log.Warn("some columns were not modified", "failed", stats.Failed, "dropped", stats.Dropped)
	}
	return nil
}

// transform applies the configured transforms in a fixed order.
func transform(m *mesh.Mesh, cfg *config.Config) error {
	if cfg.Center {
		if err := m.Center(); err != nil {
			return fmt.Errorf("center: %w", err)
		}
	}
	if v := cfg.ScaleTo; v != nil {
		if err := m.ScaleTo(mgl32.Vec3(*v)); err != nil {
			return fmt.Errorf("scale to %s: %w", v, err)
		}
	}
	if v := cfg.Scale; v != nil {
		m.Scale(mgl32.Vec3(*v))
	}
	if v := cfg.Rotate; v != nil {
		m.Rotate(mgl32.Vec3(*v))
	}
	if v := cfg.Translate; v != nil {
		m.Translate(mgl32.Vec3(*v))
	}
	return nil
}

// loadBlocks reads the block list. Without an explicit list a missing default
// is not an error; meshes without textures do not need one.
func loadBlocks(cfg *config.Config, store *storage.Storage, log *slog.Logger) (*colorlookup.Table[string], error) {
	path := cfg.Blocks
	if path == "" {
		path = store.BlockList()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			log.Warn("no block list, textured materials cannot be placed", "path", path)
			return nil, nil
		}
	}
	return blocks.Load(path, log)
}
