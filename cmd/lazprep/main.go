package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forestlidar/lazprep"
	"github.com/forestlidar/lazprep/config"
	"github.com/forestlidar/lazprep/engine"
	"github.com/forestlidar/lazprep/log"
	"github.com/forestlidar/lazprep/workflow"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lazprep",
		Short:         "Pre-processing, merging and plot clipping for LAZ files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPreprocessCmd(),
		newMergeCmd(),
		newClipPlotsCmd(),
		newVersionCmd(),
	)
	return root
}

// prepare loads the config file, validates all options and returns the
// engine the workflow should run with.
func prepare(cmd *cobra.Command, opts *config.Base) (engine.Engine, error) {
	if errs := opts.Load(); len(errs) != 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "errors in config/options:")
		for _, err := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "\t%s\n", err)
		}
		return nil, fmt.Errorf("invalid options for %s", cmd.Name())
	}
	if opts.Quiet {
		log.SetMinLevel(log.LInfo)
	}
	if opts.DryRun {
		// keep stdout for the pipelines, e.g. for `lazprep ... --dry-run | jq`
		log.SetOutput(cmd.ErrOrStderr(), false)
		return engine.NewDryRun(cmd.OutOrStdout()), nil
	}
	return engine.NewPDAL(opts.PDAL), nil
}

func newPreprocessCmd() *cobra.Command {
	opts := &config.Preprocess{}
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Reproject and height-normalize all .laz files in a directory",
		Long: `Pre-process all .laz files in --input-dir and save them as .copc.laz
to --output-dir. Pre-processing keeps classes 0-5, reprojects to EPSG:7855
and replaces Z with the height above ground. The raw elevation is kept in
the originalZ dimension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := prepare(cmd, &opts.Base)
			if err != nil {
				return err
			}
			defer log.Step("Preprocess")()
			_, err = workflow.Preprocess(cmd.Context(), *opts, eng)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.InputDir, "input-dir", "", "Input directory")
	f.StringVar(&opts.OutputDir, "output-dir", "", "Output directory")
	config.AddBaseFlags(&opts.Base, f)
	config.AddWorkersFlag(&opts.Base, f)
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func newMergeCmd() *cobra.Command {
	opts := &config.Merge{Base: config.Base{Workers: 1}}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge all COPC LAZ files in a directory into a single file",
		Long: `Merge all .copc.laz files in --input-dir into a single COPC file.
Only works with COPC LAZ files, as written by preprocess.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := prepare(cmd, &opts.Base)
			if err != nil {
				return err
			}
			defer log.Step("Merge")()
			_, err = workflow.Merge(cmd.Context(), *opts, eng)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.InputDir, "input-dir", "", "Input directory containing COPC LAZ files")
	f.StringVar(&opts.OutputFile, "output-file", "", "Output file path for the merged COPC LAZ file")
	config.AddBaseFlags(&opts.Base, f)
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("output-file")
	return cmd
}

func newClipPlotsCmd() *cobra.Command {
	opts := &config.ClipPlots{}
	cmd := &cobra.Command{
		Use:   "clip-plots",
		Short: "Create a new point cloud for each plot",
		Long: `Create a new point cloud for each plot polygon in --plots.
The input file must be a height normalized COPC LAZ file and the plots a
GeoJSON FeatureCollection of Polygons or MultiPolygons. CRS is not checked,
plots and point cloud must use the same one. Outputs are named
{site}__{plot_id}.copc.laz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := prepare(cmd, &opts.Base)
			if err != nil {
				return err
			}
			defer log.Step("Clip plots")()
			_, err = workflow.ClipPlots(cmd.Context(), *opts, eng)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.InputFile, "input-file", "", "Input COPC laz file")
	f.StringVar(&opts.OutputDir, "output-dir", "", "Output directory")
	f.StringVar(&opts.Plots, "plots", "", "GeoJSON containing plots")
	config.AddBaseFlags(&opts.Base, f)
	config.AddWorkersFlag(&opts.Base, f)
	_ = cmd.MarkFlagRequired("input-file")
	_ = cmd.MarkFlagRequired("output-dir")
	_ = cmd.MarkFlagRequired("plots")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s(%s-%s)\n", lazprep.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("[fatal] %s", err)
		stop()
		os.Exit(1)
	}
}
