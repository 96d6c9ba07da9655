package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/weightfix/internal/fsutil"
	"github.com/Faultbox/weightfix/pkg/cleanup"
	"github.com/Faultbox/weightfix/pkg/formats"
)

func (a *app) cmdFix(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: fix needs at least one model", errUsage)
	}
	var errs error
	for _, path := range args {
		if _, _, err := a.fixFile(path, false); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (a *app) cmdCheck(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: check needs at least one model", errUsage)
	}
	var errs error
	for _, path := range args {
		if _, _, err := a.fixFile(path, true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (a *app) cmdBatch(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: batch needs exactly one directory", errUsage)
	}

	models, err := fsutil.FindModels(args[0])
	if err != nil {
		return err
	}

	var (
		errs      error
		processed int
		skipped   int
		written   int
		failed    int
	)
	for _, path := range models {
		if a.isOutput(path) {
			a.log.Debug("skipping earlier output", zap.String("path", path))
			skipped++
			continue
		}
		processed++
		_, out, err := a.fixFile(path, false)
		if err != nil {
			a.log.Warn("model failed", zap.String("path", path), zap.Error(err))
			errs = multierr.Append(errs, err)
			failed++
			continue
		}
		if out != "" {
			written++
		}
	}

	fmt.Fprintf(a.out, "Processed %d models: %d written, %d failed, %d earlier outputs skipped\n",
		processed, written, failed, skipped)
	return errs
}

// isOutput reports whether path looks like a file written by an earlier run.
func (a *app) isOutput(path string) bool {
	suffix := a.cfg.Output.Suffix
	if suffix == "" || a.cfg.Output.Overwrite {
		return false
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(name, suffix)
}

// fixFile repairs every mesh of the model at path. Unless dryRun is set the
// result is saved and its path returned; an empty path means nothing was written.
func (a *app) fixFile(path string, dryRun bool) (*cleanup.Summary, string, error) {
	model, err := formats.OpenModel(path)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	pipeline := a.pipelineFor(model)
	total := &cleanup.Summary{}
	offset := 0
	for i, m := range model.Meshes() {
		var s *cleanup.Summary
		if dryRun {
			s, err = pipeline.Preview(m)
		} else {
			s, err = pipeline.Run(m)
		}
		if err != nil {
			return nil, "", fmt.Errorf("%s: mesh %d: %w", path, i, err)
		}
		total.Merge(s, offset)
		offset += len(m.Vertices)
	}

	fmt.Fprintf(a.out, "%s:\n", path)
	for _, line := range total.Lines() {
		fmt.Fprintf(a.out, "  %s\n", line)
	}

	if dryRun {
		return total, "", nil
	}
	if !total.AnyChange && !a.cfg.Output.AlwaysWrite {
		return total, "", nil
	}

	if err := model.Apply(); err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	out := path
	if !a.cfg.Output.Overwrite {
		out, err = fsutil.UnusedPath(fsutil.OutputPath(path, a.cfg.Output.Suffix))
		if err != nil {
			return nil, "", err
		}
	}
	if err := model.Save(out); err != nil {
		return nil, "", fmt.Errorf("saving %s: %w", out, err)
	}

	fmt.Fprintf(a.out, "  Saved %s\n", out)
	a.log.Info("model written",
		zap.String("input", path),
		zap.String("output", out),
		zap.Int("vertices", total.Vertices))
	return total, out, nil
}
