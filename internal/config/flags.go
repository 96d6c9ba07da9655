package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config     *string
	Debug      *bool
	Workers    *int
	KeepFormat *bool
	Overwrite  *bool
	Always     *bool
	Suffix     *string
	LogFile    *string
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:     fs.String("config", "", "Path to config file"),
		Debug:      fs.Bool("debug", false, "Enable debug logging"),
		Workers:    fs.Int("workers", 0, "Number of worker goroutines (0 = all CPUs)"),
		KeepFormat: fs.Bool("keep-format", false, "Keep BDEF4/QDEF/BDEF2 formats instead of downgrading"),
		Overwrite:  fs.Bool("overwrite", false, "Overwrite input files"),
		Always:     fs.Bool("always-write", false, "Write output even when nothing changed"),
		Suffix:     fs.String("suffix", "", "Output file name suffix"),
		LogFile:    fs.String("log-file", "", "Write logs to this file"),
	}
}

var commandLine = RegisterFlags(flag.CommandLine)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config flag.
func ConfigPath() string {
	return *commandLine.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Workers > 0 {
		cfg.Cleanup.Workers = *f.Workers
	}
	if *f.KeepFormat {
		cfg.Cleanup.KeepFormat = true
	}
	if *f.Overwrite {
		cfg.Output.Overwrite = true
	}
	if *f.Always {
		cfg.Output.AlwaysWrite = true
	}
	if *f.Suffix != "" {
		cfg.Output.Suffix = *f.Suffix
	}
	if *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
}
