package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/panelworks/panel-detect/internal/batch"
	"github.com/panelworks/panel-detect/internal/book"
	"github.com/panelworks/panel-detect/internal/detect"
	"github.com/panelworks/panel-detect/internal/render"
	"github.com/panelworks/panel-detect/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("panel-detect %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	var (
		settingsPath = flag.String("settings", "", "YAML settings file (defaults apply when empty)")
		outPath      = flag.String("out", "panels.json", "output JSON file")
		overlayDir   = flag.String("overlay", "", "write per-page overlay images into this directory")
		workers      = flag.Int("workers", runtime.NumCPU(), "concurrent pages")
		rtl          = flag.Bool("rtl", false, "right-to-left reading order (manga)")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "panel-detect - comic panel detection")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: panel-detect [options] <book-directory>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	if err := run(flag.Arg(0), *settingsPath, *outPath, *overlayDir, *workers, *rtl, log); err != nil {
		log.Fatal().Err(err).Msg("panel-detect failed")
	}
}

func run(dir, settingsPath, outPath, overlayDir string, workers int, rtl bool, log zerolog.Logger) error {
	settings := detect.DefaultSettings()
	if settingsPath != "" {
		var err error
		settings, err = detect.LoadSettings(settingsPath)
		if err != nil {
			return err
		}
	}

	detector, err := detect.NewDetector(settings, log)
	if err != nil {
		return err
	}

	bk, err := book.Open(dir)
	if err != nil {
		return err
	}
	if rtl {
		bk.Metadata.Direction = detect.RTL
	}
	log.Info().
		Str("book", bk.Metadata.Title).
		Int("pages", bk.Metadata.PageCount).
		Str("hash", bk.Hash).
		Msg("book opened")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := store.NewResultCache(0, 0)
	runner := batch.NewRunner(detector, cache, workers, log)
	data := book.NewData(bk)

	statuses, err := runner.Run(ctx, bk, data)
	if err != nil {
		return err
	}

	failed := 0
	for _, st := range statuses {
		if st.Status == batch.StatusFailed {
			failed++
			log.Warn().Int("page", st.Index).Str("error", st.Error).Msg("page failed")
		}
	}

	if err := data.Save(outPath); err != nil {
		return err
	}
	log.Info().
		Int("pages", len(statuses)).
		Int("failed", failed).
		Str("out", outPath).
		Msg("detection complete")

	if overlayDir != "" {
		if err := writeOverlays(bk, data, overlayDir, log); err != nil {
			return err
		}
	}
	return nil
}

func writeOverlays(bk *book.Book, data *book.Data, dir string, log zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	for _, page := range bk.Pages {
		res, ok := data.Effective(page.Index)
		if !ok {
			continue
		}
		img, err := bk.LoadPage(page.Index)
		if err != nil {
			log.Warn().Int("page", page.Index).Err(err).Msg("skipping overlay")
			continue
		}
		out := filepath.Join(dir, fmt.Sprintf("page-%03d.png", page.Index))
		if err := render.Save(render.Overlay(img, res), out); err != nil {
			return err
		}
	}
	return nil
}
