// Package workflow implements the preprocess, merge and clip-plots commands.
//
// Each workflow discovers its units of work, builds one pipeline per unit and
// hands it to an engine.Engine. Preprocess and merge abort on the first
// engine failure. Clip-plots isolates failures per plot and continues.
package workflow

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/forestlidar/lazprep/config"
	"github.com/forestlidar/lazprep/engine"
	"github.com/forestlidar/lazprep/files"
	"github.com/forestlidar/lazprep/log"
	"github.com/forestlidar/lazprep/pipeline"
	"github.com/forestlidar/lazprep/plots"
	"github.com/forestlidar/lazprep/stats"
)

func ensureOutputDir(dir string) error {
	created, err := files.EnsureDir(dir)
	if err != nil {
		return err
	}
	if created {
		log.Printf("[info] Created output directory: %s", dir)
	}
	return nil
}

// limit returns the number of units to run in parallel. Options that never
// went through config.Base.Load run sequentially.
func limit(workers int) int {
	if workers < 1 {
		return 1
	}
	return workers
}

// dryRun reports whether eng only prints pipelines. Point counts are
// meaningless then and are not reported.
func dryRun(eng engine.Engine) bool {
	_, ok := eng.(*engine.DryRun)
	return ok
}

// Preprocess reprojects and height-normalizes every .laz file in
// opts.InputDir. Existing .copc.laz files are not picked up again.
func Preprocess(ctx context.Context, opts config.Preprocess, eng engine.Engine) (stats.Summary, error) {
	names, err := files.Find(opts.InputDir, pipeline.LAZSuffix, pipeline.COPCSuffix)
	if err == files.ErrNoInput {
		log.Printf("[info] No .laz files found in %s", opts.InputDir)
		return stats.Summary{}, nil
	}
	if err != nil {
		return stats.Summary{}, err
	}

	if err := ensureOutputDir(opts.OutputDir); err != nil {
		return stats.Summary{}, err
	}
	log.Printf("[info] Found %d .laz files in %s", len(names), opts.InputDir)

	counter := stats.NewCounter(len(names))
	normOpts := opts.NormalizeOptions()
	dry := dryRun(eng)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(opts.Workers))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			// stop as soon as one file failed
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Printf("[progress] Processing %d of %d", i+1, len(names))
			p := pipeline.Normalize(
				filepath.Join(opts.InputDir, name),
				filepath.Join(opts.OutputDir, pipeline.NormalizedName(name)),
				normOpts,
			)
			n, err := eng.Execute(gctx, p)
			if err != nil {
				counter.Fail()
				return errors.Wrapf(err, "processing %s", name)
			}
			counter.Add(n)
			if !dry {
				log.Printf("[info] Finished processing %s with %d points.", name, n)
			}
			return nil
		})
	}
	err = g.Wait()
	summary := counter.Summary()
	if err != nil {
		return summary, err
	}
	if !dry {
		log.Printf("[info] Finished preprocessing: %s", summary)
	}
	return summary, nil
}

// Merge combines all .copc.laz files in opts.InputDir into opts.OutputFile
// with a single pipeline.
func Merge(ctx context.Context, opts config.Merge, eng engine.Engine) (stats.Summary, error) {
	names, err := files.Find(opts.InputDir, pipeline.COPCSuffix)
	if err == files.ErrNoInput {
		log.Printf("[info] No COPC LAZ files found in %s", opts.InputDir)
		return stats.Summary{}, nil
	}
	if err != nil {
		return stats.Summary{}, err
	}
	log.Printf("[info] Found %d COPC LAZ files in %s", len(names), opts.InputDir)

	if err := ensureOutputDir(filepath.Dir(opts.OutputFile)); err != nil {
		return stats.Summary{}, err
	}

	srcs := make([]string, len(names))
	for i, name := range names {
		srcs[i] = filepath.Join(opts.InputDir, name)
	}

	counter := stats.NewCounter(1)
	log.Printf("[info] Merging %d files into %s", len(srcs), opts.OutputFile)
	n, err := eng.Execute(ctx, pipeline.Merge(srcs, opts.OutputFile))
	if err != nil {
		counter.Fail()
		return counter.Summary(), errors.Wrap(err, "merging")
	}
	counter.Add(n)
	if !dryRun(eng) {
		log.Printf("[info] Finished merging files. Output file contains %d points.", n)
	}
	return counter.Summary(), nil
}

// ClipPlots writes one point cloud per plot feature in opts.Plots. Failing
// plots are logged and skipped.
func ClipPlots(ctx context.Context, opts config.ClipPlots, eng engine.Engine) (stats.Summary, error) {
	if _, err := os.Stat(opts.InputFile); err != nil {
		return stats.Summary{}, errors.Wrap(err, "input file")
	}
	all, err := plots.Load(opts.Plots)
	if err != nil {
		return stats.Summary{}, err
	}

	if err := ensureOutputDir(opts.OutputDir); err != nil {
		return stats.Summary{}, err
	}
	log.Printf("[info] Found %d plots in GeoJSON", len(all))

	counter := stats.NewCounter(len(all))
	dry := dryRun(eng)

	var g errgroup.Group
	g.SetLimit(limit(opts.Workers))
	for _, plot := range all {
		plot := plot
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Printf("[progress] Processing plot %d/%d: %s", plot.Index+1, len(all), plot.Name())
			n, err := clipPlot(ctx, opts, eng, plot)
			if err != nil {
				counter.Fail()
				log.Printf("[error] Error processing plot %s: %s", plot.Name(), err)
				return nil
			}
			counter.Add(n)
			switch {
			case dry:
			case n > 0:
				log.Printf("[info] Clipped %d points to %s", n, plot.Filename())
			default:
				log.Printf("[info] No points found in plot %s", plot.Name())
			}
			return nil
		})
	}
	err = g.Wait()
	summary := counter.Summary()
	if err != nil {
		return summary, err
	}
	if dry {
		return summary, nil
	}
	log.Printf("[info] Finished processing all plots: %d clipped, %d empty, %d failed",
		summary.Succeeded, summary.Empty, summary.Failed)
	return summary, nil
}

func clipPlot(ctx context.Context, opts config.ClipPlots, eng engine.Engine, plot plots.Plot) (int64, error) {
	polygon, discarded, err := plots.WKT(plot.Geometry)
	if err != nil {
		return 0, err
	}
	if discarded > 0 {
		log.Printf("[warn] Plot %s is a MultiPolygon, clipping with the first polygon only (%d dropped)",
			plot.Name(), discarded)
	}
	out := filepath.Join(opts.OutputDir, plot.Filename())
	return eng.Execute(ctx, pipeline.Clip(opts.InputFile, polygon, out))
}
