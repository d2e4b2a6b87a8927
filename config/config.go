package config

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/forestlidar/lazprep/engine"
	"github.com/forestlidar/lazprep/pipeline"
)

type Config struct {
	PDAL           string `yaml:"pdal"`
	TargetSRS      string `yaml:"target_srs"`
	Classification []int  `yaml:"classification"`
	Workers        int    `yaml:"workers"`
}

const defaultWorkers = 1

var defaultClassification = fmt.Sprintf("%d:%d",
	pipeline.DefaultNormalizeOptions.Classes.Min,
	pipeline.DefaultNormalizeOptions.Classes.Max,
)

type Base struct {
	ConfigFile     string
	PDAL           string
	TargetSRS      string
	Classification string
	Workers        int
	DryRun         bool
	Quiet          bool

	classes pipeline.ClassRange
	flags   *pflag.FlagSet
}

func AddBaseFlags(opts *Base, flags *pflag.FlagSet) {
	opts.flags = flags
	flags.StringVar(&opts.ConfigFile, "config", "", "config (yaml)")
	flags.StringVar(&opts.PDAL, "pdal", engine.DefaultPDAL, "pdal executable")
	flags.StringVar(&opts.TargetSRS, "target-srs", pipeline.DefaultNormalizeOptions.TargetSRS, "target spatial reference system for preprocess")
	flags.StringVar(&opts.Classification, "classification", defaultClassification, "range of classification codes to keep (min:max)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "print pipelines instead of running them")
	flags.BoolVar(&opts.Quiet, "quiet", false, "quiet log output")
}

func AddWorkersFlag(opts *Base, flags *pflag.FlagSet) {
	flags.IntVar(&opts.Workers, "workers", defaultWorkers, "number of pipelines to run in parallel")
}

// Load reads the config file and applies all values that were not set
// on the command line. It returns all option errors at once.
func (o *Base) Load() []error {
	if err := o.updateFromConfig(); err != nil {
		return []error{err}
	}
	return o.check()
}

func (o *Base) updateFromConfig() error {
	conf := &Config{}

	if o.ConfigFile != "" {
		b, err := ioutil.ReadFile(o.ConfigFile)
		if err != nil {
			return errors.Wrap(err, "reading config")
		}
		if err := yaml.UnmarshalStrict(b, conf); err != nil {
			return errors.Wrapf(err, "parsing config %q", o.ConfigFile)
		}
	}

	if conf.PDAL != "" && !o.changed("pdal") {
		o.PDAL = conf.PDAL
	}
	if conf.TargetSRS != "" && !o.changed("target-srs") {
		o.TargetSRS = conf.TargetSRS
	}
	if conf.Classification != nil && !o.changed("classification") {
		if len(conf.Classification) != 2 {
			return errors.Errorf("classification in %q needs exactly two values [min, max]", o.ConfigFile)
		}
		o.Classification = fmt.Sprintf("%d:%d", conf.Classification[0], conf.Classification[1])
	}
	if conf.Workers != 0 && !o.changed("workers") {
		o.Workers = conf.Workers
	}
	return nil
}

// changed reports whether the flag was set on the command line, even if to
// its default value.
func (o *Base) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

func parseClassRange(s string) (pipeline.ClassRange, error) {
	r := pipeline.ClassRange{}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return r, errors.Errorf("invalid classification %q, expected min:max", s)
	}
	var err error
	if r.Min, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return r, errors.Errorf("invalid classification minimum %q", parts[0])
	}
	if r.Max, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return r, errors.Errorf("invalid classification maximum %q", parts[1])
	}
	if r.Min < 0 || r.Max > 255 || r.Min > r.Max {
		return r, errors.Errorf("classification %q must satisfy 0 <= min <= max <= 255", s)
	}
	return r, nil
}

func (o *Base) check() []error {
	errs := []error{}
	if o.TargetSRS == "" {
		errs = append(errs, errors.New("missing --target-srs"))
	}
	if o.PDAL == "" {
		errs = append(errs, errors.New("missing --pdal"))
	}
	if o.Workers < 1 {
		errs = append(errs, errors.New("--workers must be at least 1"))
	}
	classes, err := parseClassRange(o.Classification)
	if err != nil {
		errs = append(errs, err)
	}
	o.classes = classes
	return errs
}

// NormalizeOptions returns the stage parameters for preprocess. Only valid
// after Load succeeded.
func (o *Base) NormalizeOptions() pipeline.NormalizeOptions {
	return pipeline.NormalizeOptions{
		Classes:   o.classes,
		TargetSRS: o.TargetSRS,
	}
}

type Preprocess struct {
	Base
	InputDir  string
	OutputDir string
}

type Merge struct {
	Base
	InputDir   string
	OutputFile string
}

type ClipPlots struct {
	Base
	InputFile string
	OutputDir string
	Plots     string
}
