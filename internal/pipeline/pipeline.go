// Package pipeline streams world columns from region files through a
// rasterization strategy and back into region files.
//
// One loader goroutine reads every region the volume spans and routes each
// column either to the pending queue (it may be touched by the mesh) or to
// the completed queue. A fixed pool of workers drains pending. A single
// reassembler groups completed columns by region and writes each region once
// it holds a full set of columns, or when the workers are done.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/voxelmerge/internal/raster"
	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/anvil"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
)

// DefaultPollInterval is how long idle stages sleep between queue polls.
const DefaultPollInterval = time.Millisecond

// Options configures a Pipeline.
type Options struct {
	// InputDir and OutputDir hold r.X.Z.mca files. They may be the same.
	InputDir  string
	OutputDir string

	Volume   Volume
	Strategy raster.Strategy
	Workers  int

	Log          *slog.Logger
	Sink         report.Sink
	Progress     report.Progress
	PollInterval time.Duration
}

// Stats counts what a run did.
type Stats struct {
	Loaded      int64 // columns read from region files
	Created     int64 // empty columns created for absent touched slots
	Modified    int64 // columns rewritten by the strategy
	Passthrough int64 // columns written back unchanged
	Failed      int64 // columns the strategy could not process
	Dropped     int64 // failed columns with no original bytes to keep
	Corrupt     int64 // unreadable or unwritable slots
	Regions     int64 // region groups flushed
}

type counters struct {
	loaded, created, modified, passthrough atomic.Int64
	failed, dropped, corrupt, regions      atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Loaded:      c.loaded.Load(),
		Created:     c.created.Load(),
		Modified:    c.modified.Load(),
		Passthrough: c.passthrough.Load(),
		Failed:      c.failed.Load(),
		Dropped:     c.dropped.Load(),
		Corrupt:     c.corrupt.Load(),
		Regions:     c.regions.Load(),
	}
}

// Pipeline runs one merge. It is not reusable.
type Pipeline struct {
	opts Options
	log  *slog.Logger
	sink report.Sink

	pending   Queue[*chunk.Column]
	completed Queue[*chunk.Column]

	loaderDone  atomic.Bool
	workersDone atomic.Bool
	running     atomic.Int32

	progressMu sync.Mutex
	done       int64

	stats counters
}

// New returns a Pipeline for opts.
func New(opts Options) (*Pipeline, error) {
	if opts.Strategy == nil {
		return nil, errors.New("pipeline: no strategy")
	}
	if opts.InputDir == "" || opts.OutputDir == "" {
		return nil, errors.New("pipeline: input and output directories are required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	p := &Pipeline{opts: opts, log: opts.Log, sink: opts.Sink}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	if p.sink == nil {
		p.sink = report.NewLogSink(p.log)
	}
	return p, nil
}

// Run merges the volume and blocks until every stage has finished.
//
// Cancelling ctx stops the loader after the region it is reading. Columns
// already loaded are still processed and written, so every region file that
// is written holds all of its columns. Run then returns ctx's error.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	p.log.Info("merge started",
		"strategy", p.opts.Strategy.Name(),
		"workers", p.opts.Workers,
		"volume", p.opts.Volume.String(),
		"columns", p.opts.Volume.ColumnCount(),
	)

	// Stages only stop early when another stage fails.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	// Done flags are raised only on success.
	g.Go(func() error {
		err := p.load(ctx, gctx)
		if err == nil {
			p.loaderDone.Store(true)
		}
		return err
	})

	p.running.Store(int32(p.opts.Workers))
	for range p.opts.Workers {
		g.Go(func() error {
			err := p.work(gctx)
			if err == nil && p.running.Add(-1) == 0 {
				p.workersDone.Store(true)
			}
			return err
		})
	}

	g.Go(func() error {
		return p.reassemble(gctx)
	})

	err := g.Wait()
	stats := p.stats.snapshot()
	if err != nil {
		p.log.Error("merge failed", "error", err, "elapsed", time.Since(start))
		return stats, err
	}

	p.log.Info("merge finished",
		"loaded", stats.Loaded,
		"created", stats.Created,
		"modified", stats.Modified,
		"passthrough", stats.Passthrough,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
		"corrupt", stats.Corrupt,
		"regions", stats.Regions,
		"elapsed", time.Since(start),
	)
	if ctx.Err() != nil {
		return stats, fmt.Errorf("merge interrupted: %w", ctx.Err())
	}
	return stats, nil
}

// idle sleeps for one poll interval. It returns the context error when the
// run is aborting.
func (p *Pipeline) idle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	time.Sleep(p.opts.PollInterval)
	return nil
}

func (p *Pipeline) load(ctx, gctx context.Context) error {
	minX, maxX, minZ, maxZ := p.opts.Volume.Regions()
	for rx := minX; rx <= maxX; rx++ {
		for rz := minZ; rz <= maxZ; rz++ {
			if ctx.Err() != nil {
				p.log.Warn("loading interrupted", "region_x", rx, "region_z", rz)
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.loadRegion(rx, rz); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) loadRegion(rx, rz int) error {
	path := anvil.Path(p.opts.InputDir, rx, rz)
	r, err := anvil.Load(path, rx, rz)
	switch {
	case errors.Is(err, anvil.ErrNotFound):
		p.log.Debug("region absent", "region_x", rx, "region_z", rz)
		r = anvil.NewRegion(rx, rz)
	case err != nil:
		return fmt.Errorf("load region %d,%d: %w", rx, rz, err)
	}

	for _, cc := range r.Corrupt {
		p.stats.corrupt.Add(1)
		p.sink.Report(slog.LevelWarn, "corrupt column ignored", "region_x", rx, "region_z", rz, "error", cc)
	}

	return r.ForEach(func(lx, lz int, c *chunk.Column) error {
		x, z := r.Origin(lx, lz)
		touched := p.opts.Volume.Touches(x, z)
		if c == nil {
			if !touched {
				return nil
			}
			fresh, err := chunk.NewColumn(x, z)
			if err != nil {
				return fmt.Errorf("new column %d,%d: %w", x, z, err)
			}
			p.stats.created.Add(1)
			p.pending.Push(fresh)
			return nil
		}

		p.stats.loaded.Add(1)
		if touched {
			p.pending.Push(c)
		} else {
			p.stats.passthrough.Add(1)
			p.completed.Push(c)
		}
		return nil
	})
}

func (p *Pipeline) work(ctx context.Context) error {
	// Columns are always finished once popped, even when the run is
	// interrupted.
	colCtx := context.WithoutCancel(ctx)
	for {
		c, ok := p.pending.TryPop()
		if !ok {
			if p.loaderDone.Load() && p.pending.Len() == 0 {
				return nil
			}
			if err := p.idle(ctx); err != nil {
				return err
			}
			continue
		}

		if out := p.process(colCtx, c); out != nil {
			p.completed.Push(out)
		}
		p.advance()
	}
}

// process runs the strategy on c. It returns the column to write, or nil
// when the column has to be dropped.
func (p *Pipeline) process(ctx context.Context, c *chunk.Column) *chunk.Column {
	orig := *c
	modified, err := p.opts.Strategy.ModifyColumn(ctx, c)
	if err == nil && modified {
		err = c.Compress()
	}
	if err != nil {
		*c = orig
		p.stats.failed.Add(1)
		if !c.Compressed {
			p.stats.dropped.Add(1)
			p.sink.Report(slog.LevelError, "column dropped", "x", c.X, "z", c.Z, "error", err)
			return nil
		}
		p.sink.Report(slog.LevelError, "column kept unchanged", "x", c.X, "z", c.Z, "error", err)
		return c
	}

	if modified {
		p.stats.modified.Add(1)
	} else {
		p.stats.passthrough.Add(1)
	}
	return c
}

func (p *Pipeline) advance() {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.done++
	if p.opts.Progress != nil {
		p.opts.Progress(p.done, p.opts.Volume.ColumnCount())
	}
}

type regionKey struct{ x, z int }

func (p *Pipeline) reassemble(ctx context.Context) error {
	groups := make(map[regionKey]*anvil.Region)

	for {
		c, ok := p.completed.TryPop()
		if !ok {
			if p.workersDone.Load() && p.completed.Len() == 0 {
				break
			}
			if err := p.idle(ctx); err != nil {
				return err
			}
			continue
		}

		rx, rz := c.RegionCoords()
		key := regionKey{rx, rz}
		r, ok := groups[key]
		if !ok {
			r = anvil.NewRegion(rx, rz)
			groups[key] = r
		}
		if err := r.Put(c); err != nil {
			return err
		}
		if r.Len() == chunk.RegionColumns {
			delete(groups, key)
			if err := p.flush(r); err != nil {
				return err
			}
		}
	}

	keys := slices.SortedFunc(maps.Keys(groups), func(a, b regionKey) int {
		return cmp.Or(cmp.Compare(a.x, b.x), cmp.Compare(a.z, b.z))
	})
	for _, k := range keys {
		if err := p.flush(groups[k]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) flush(r *anvil.Region) error {
	path := anvil.Path(p.opts.OutputDir, r.X, r.Z)
	skipped, err := anvil.Save(path, r)
	for _, cc := range skipped {
		p.stats.corrupt.Add(1)
		p.sink.Report(slog.LevelWarn, "column not saved", "region_x", r.X, "region_z", r.Z, "error", cc)
	}
	if err != nil {
		return fmt.Errorf("save region %d,%d: %w", r.X, r.Z, err)
	}
	p.stats.regions.Add(1)
	p.log.Debug("region written", "path", path, "columns", r.Len())
	return nil
}
