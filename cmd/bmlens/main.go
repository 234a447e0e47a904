package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/nikbrunner/bmlens/internal/config"
	"github.com/nikbrunner/bmlens/internal/library"
	"github.com/nikbrunner/bmlens/internal/storage"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"c" long:"config" env:"BMLENS_CONFIG" description:"config file, ~/.config/bmlens/config.yml by default"`
	DB      string `long:"db" env:"BMLENS_DB" description:"data directory, overrides storage.dir"`
	Storage string `long:"storage" env:"BMLENS_STORAGE" choice:"auto" choice:"json" choice:"sqlite" description:"storage backend, overrides storage.kind"`
	Yes     bool   `short:"y" long:"yes" description:"do not ask before deleting"`

	Import     ImportCmd     `command:"import" description:"import a browser bookmark file (Netscape HTML or Chrome JSON)"`
	Export     ExportCmd     `command:"export" description:"export the library"`
	Stats      StatsCmd      `command:"stats" description:"show library statistics"`
	Duplicates DuplicatesCmd `command:"duplicates" description:"list duplicate bookmarks"`
	Empty      EmptyCmd      `command:"empty" description:"list empty folders"`
	Check      CheckCmd      `command:"check" description:"find invalid and unreachable bookmarks"`
	Categorize CategorizeCmd `command:"categorize" description:"group bookmarks by category"`
	Search     SearchCmd     `command:"search" description:"fuzzy search and open a bookmark"`
	Serve      ServeCmd      `command:"serve" description:"run the local JSON API"`
	Notes      NotesCmd      `command:"notes" subcommands-optional:"yes" description:"list, read and write bookmark notes"`
	Schema     SchemaCmd     `command:"schema" description:"print the JSON schema of the config file"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}
	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	color.NoColor = color.NoColor || opts.NoColor
	setupLog(opts.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, commandPath(parser.Active), os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

// commandPath joins the names of the active command chain, e.g. "notes get".
func commandPath(cmd *flags.Command) string {
	var names []string
	for c := cmd; c != nil; c = c.Active {
		names = append(names, c.Name)
	}
	return strings.Join(names, " ")
}

// env is what every command works with.
type env struct {
	opts Opts
	cfg  *config.Config
	lib  *library.Library
	out  io.Writer
}

func run(ctx context.Context, opts Opts, command string, out io.Writer) error {
	if command == "schema" {
		return opts.Schema.run(out)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	backend, err := storage.OpenStorage(cfg.Storage.Dir, cfg.Storage.Kind)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("[WARN] can't close storage: %v", err)
		}
	}()

	lib, err := library.Open(cfg, backend)
	if err != nil {
		return err
	}
	if settings, err := lib.AISettings(); err == nil && settings.APIKey != "" {
		setupLog(opts.Debug, settings.APIKey)
	}

	e := &env{opts: opts, cfg: cfg, lib: lib, out: out}
	started := time.Now()
	defer func() { log.Printf("[DEBUG] %s done in %v", command, time.Since(started)) }()

	switch command {
	case "import":
		return opts.Import.run(e)
	case "export":
		return opts.Export.run(ctx, e)
	case "stats":
		return opts.Stats.run(e)
	case "duplicates":
		return opts.Duplicates.run(e)
	case "empty":
		return opts.Empty.run(e)
	case "check":
		return opts.Check.run(ctx, e)
	case "categorize":
		return opts.Categorize.run(ctx, e)
	case "search":
		return opts.Search.run(e)
	case "serve":
		return opts.Serve.run(ctx, e)
	case "notes get":
		return opts.Notes.Get.run(e)
	case "notes set":
		return opts.Notes.Set.run(e)
	case "notes", "notes list":
		return opts.Notes.List.run(e)
	}
	return fmt.Errorf("unknown command %q", command)
}

// loadConfig reads the config file and applies the storage flags.
func loadConfig(opts Opts) (*config.Config, error) {
	path := opts.Config
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = p
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config: %s not found", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DB != "" {
		cfg.Storage.Dir = opts.DB
	}
	if opts.Storage != "" {
		cfg.Storage.Kind = storage.Kind(opts.Storage)
	}
	return cfg, nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stderr), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Out(os.Stderr), lgr.Err(io.Discard), lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFile, lgr.CallerFunc}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
