// weightfix repairs vertex skin weights and normals of PMX and glTF models.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/weightfix/internal/config"
	"github.com/Faultbox/weightfix/internal/logger"
	"github.com/Faultbox/weightfix/pkg/cleanup"
	"github.com/Faultbox/weightfix/pkg/formats"
)

var errUsage = errors.New("invalid usage")

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a := newApp(cfg, os.Stdout)
	a.configPath = config.ConfigPath()
	if err := run(a, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
		} else {
			logger.Error("weightfix failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func run(a *app, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "fix":
		return a.cmdFix(args)
	case "check":
		return a.cmdCheck(args)
	case "batch":
		return a.cmdBatch(args)
	case "info":
		return a.cmdInfo(args)
	case "config":
		return a.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `weightfix - vertex weight and normal repair for PMX and glTF models

Usage:
  weightfix [options] <command> [arguments]

Commands:
  fix <model>...    Repair models and write <name>_weightfix.<ext>
  check <model>...  Report what fix would change without writing
  batch <dir>       Fix every .pmx/.glb/.gltf model under dir
  info <model>      Show model header and weight format counts
  config [file]     Write the effective settings as YAML (default: the
                    -config file, else the user config directory)

Options:
  -config <file>    Config file (default ./weightfix.yaml, then user config dir)
  -debug            Enable debug logging
  -workers <n>      Worker goroutines (0 = all CPUs)
  -keep-format      Never downgrade BDEF4/QDEF/BDEF2 weights
  -overwrite        Overwrite input files
  -always-write     Write output even when nothing changed
  -suffix <s>       Output name suffix (default _weightfix)
  -log-file <file>  Also write logs to a rotating file

Examples:
  weightfix fix miku.pmx
  weightfix -keep-format check scene.glb
  weightfix -workers 4 batch ./models
  weightfix -keep-format -workers 2 config`)
}

// app carries the state shared by all commands.
type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer

	configPath string // Value of -config, empty when not given

	pipeline *cleanup.Pipeline
	// fixedSlots never downgrades weights. glTF always stores four
	// joint slots, so a downgrade there would be reported again on every run.
	fixedSlots *cleanup.Pipeline
}

func newApp(cfg *config.Config, out io.Writer) *app {
	pipelineLog := logger.Named("pipeline")
	pc := cleanup.Config{
		WeightTolerance: cfg.Cleanup.WeightTolerance,
		NormalTolerance: cfg.Cleanup.NormalTolerance,
		KeepFormat:      cfg.Cleanup.KeepFormat,
		Workers:         cfg.Cleanup.Workers,
		ChunkSize:       cfg.Cleanup.ChunkSize,
		Logger:          pipelineLog,
		Progress: func(stage cleanup.Stage, done, total int) {
			if done == total {
				pipelineLog.Debug("stage complete", zap.Stringer("stage", stage), zap.Int("vertices", total))
			}
		},
	}
	fixed := pc
	fixed.KeepFormat = true

	return &app{
		cfg:        cfg,
		log:        logger.Named("weightfix"),
		out:        out,
		pipeline:   cleanup.New(pc),
		fixedSlots: cleanup.New(fixed),
	}
}

// pipelineFor picks the pipeline matching the model's weight storage.
func (a *app) pipelineFor(model formats.Model) *cleanup.Pipeline {
	if _, ok := model.(*formats.GLTF); ok {
		return a.fixedSlots
	}
	return a.pipeline
}
