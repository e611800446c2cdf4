package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/voxelmerge/internal/blocks"
	"github.com/OCharnyshevich/voxelmerge/internal/storage"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
)

var (
	base     = flag.String("base", "https://github.com/PrismarineJS/minecraft-data.git", "minecraft-data repository")
	platform = flag.String("platform", "pc", "platform of the block registry")
	ver      = flag.String("version", chunk.GameVersion, "game version; newer blocks are unknown to the worlds voxelmerge writes")
	textures = flag.String("textures", "git::https://github.com/InventivetalentDev/minecraft-assets.git//assets/minecraft/textures/block?ref=%s", "block texture source; %s is replaced by the version")
	assets   = flag.String("assets", "assets", "assets directory")
	fill     = flag.Bool("fill", true, "compute block colours after downloading")
)

func main() {
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(log, *base, *platform, *ver, fmt.Sprintf(*textures, *ver), *assets, *fill); err != nil {
		log.Error("download failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, base, platform, ver, textureURL, assets string, fill bool) error {
	store, err := storage.New(assets, log)
	if err != nil {
		return err
	}

	scheme := filepath.Join(assets, "scheme", fmt.Sprintf("%s-%s", platform, ver))
	if err := os.RemoveAll(scheme); err != nil {
		return err
	}
	// https://github.com/PrismarineJS/minecraft-data/tree/master/data/pc/1.16.4
	url := fmt.Sprintf("git::%s//data/%s/%s", base, platform, ver)
	log.Info("downloading block registry", "url", url, "path", scheme)
	if err := get.Get(scheme, url); err != nil {
		return fmt.Errorf("download registry: %w", err)
	}

	texDir := filepath.Join(store.TextureDir(), "block")
	if err := os.RemoveAll(texDir); err != nil {
		return err
	}
	log.Info("downloading block textures", "url", textureURL, "path", texDir)
	if err := get.Get(texDir, textureURL); err != nil {
		return fmt.Errorf("download textures: %w", err)
	}

	f, err := os.Open(filepath.Join(scheme, "blocks.json"))
	if err != nil {
		return err
	}
	registry, err := blocks.ParseRegistry(f)
	f.Close()
	if err != nil {
		return err
	}

	entries, err := blocks.Catalog(registry, texDir, store.BlockListDir())
	if err != nil {
		return err
	}
	if fill {
		if _, err := blocks.Fill(entries, store.BlockListDir()); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := blocks.Write(&buf, entries); err != nil {
		return err
	}
	if err := storage.WriteFile(store.BlockList(), buf.Bytes()); err != nil {
		return err
	}
	log.Info("wrote block list", "path", store.BlockList(), "blocks", len(entries), "registry", len(registry))
	return nil
}
