// papayactl is the operator CLI for the storage core: stat paths on any
// backend, query disk usage, crawl a library and run single relocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/config"
	"github.com/papayastack/papaya/internal/hash"
	"github.com/papayastack/papaya/internal/layout"
	"github.com/papayastack/papaya/internal/logging"
	"github.com/papayastack/papaya/internal/move"
	"github.com/papayastack/papaya/internal/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: papayactl <command> [flags]

Commands:
  stat <path>      show file metadata (local path or host/bucket/key)
  du <root>        show disk usage for a storage root
  crawl <root...>  list files under local roots
  path             print the canonical path for a file (see path -help)
  move             relocate a tracked file (see move -help)
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := storage.NewGateway(cfg)

	var cmdErr error
	switch os.Args[1] {
	case "stat":
		cmdErr = runStat(ctx, gw, os.Args[2:])
	case "du":
		cmdErr = runDiskUsage(ctx, gw, os.Args[2:])
	case "crawl":
		cmdErr = runCrawl(ctx, os.Args[2:])
	case "path":
		cmdErr = runPath(cfg, os.Args[2:])
	case "move":
		cmdErr = runMove(ctx, cfg, gw, os.Args[2:])
	default:
		usage()
	}

	if cmdErr != nil {
		logging.Error("command failed", zap.String("command", os.Args[1]), zap.Error(cmdErr))
		os.Exit(1)
	}
}

func runStat(ctx context.Context, gw *storage.Gateway, args []string) error {
	if len(args) != 1 {
		return errors.New("stat: expected exactly one path")
	}
	stat, err := gw.Stat(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("path:   %s\n", args[0])
	fmt.Printf("size:   %d\n", stat.Size)
	fmt.Printf("mtime:  %s\n", stat.ModTime.Format(time.RFC3339))
	fmt.Printf("atime:  %s\n", stat.AccessTime.Format(time.RFC3339))
	fmt.Printf("btime:  %s\n", stat.BirthTime.Format(time.RFC3339))
	fmt.Printf("isdir:  %t\n", stat.IsDir)
	return nil
}

func runDiskUsage(ctx context.Context, gw *storage.Gateway, args []string) error {
	if len(args) != 1 {
		return errors.New("du: expected exactly one root")
	}
	du, err := gw.CheckDiskUsage(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("total:     %d\n", du.Total)
	fmt.Printf("free:      %d\n", du.Free)
	fmt.Printf("available: %d\n", du.Available)
	return nil
}

func runCrawl(ctx context.Context, args []string) error {
	fl := flag.NewFlagSet("crawl", flag.ExitOnError)
	hidden := fl.Bool("hidden", false, "include hidden files and directories")
	exclude := fl.String("exclude", "", "comma-separated doublestar exclude patterns")
	fl.Parse(args)
	if fl.NArg() < 1 {
		return errors.New("crawl: expected at least one root")
	}

	opts := storage.WalkOptions{IncludeHidden: *hidden}
	for _, p := range strings.Split(*exclude, ",") {
		if p != "" {
			opts.Excludes = append(opts.Excludes, p)
		}
	}

	entries, err := storage.Crawl(ctx, fl.Args(), opts)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%12d  %s  %s\n", e.Size, e.ModTime.Format(time.RFC3339), e.Path)
	}
	return nil
}

func runPath(cfg *config.Config, args []string) error {
	fl := flag.NewFlagSet("path", flag.ExitOnError)
	owner := fl.String("owner", "", "owning entity ID")
	kind := fl.String("kind", "original", "file kind (original, thumbnail, preview, video, sidecar)")
	name := fl.String("file", "", "filename")
	fl.Parse(args)

	if *owner == "" || *name == "" {
		return errors.New("path: -owner and -file are required")
	}
	k := layout.FileKind(*kind)
	if !k.Valid() {
		return fmt.Errorf("path: unknown kind %q", *kind)
	}

	full := layout.FullPath(cfg.MediaRoot, *owner, k, *name)
	fmt.Println(full)
	if layout.NeedsMkdir(cfg.MediaRoot) {
		fmt.Printf("mkdir: %s\n", filepath.Dir(full))
	}
	return nil
}

func runMove(ctx context.Context, cfg *config.Config, gw *storage.Gateway, args []string) error {
	fl := flag.NewFlagSet("move", flag.ExitOnError)
	entity := fl.String("entity", "", "owning entity ID")
	kind := fl.String("kind", "original", "path kind (original, thumbnail, preview, video, sidecar)")
	from := fl.String("from", "", "current path")
	to := fl.String("to", "", "destination path")
	size := fl.Int64("size", 0, "expected size in bytes (0 = use source size)")
	sum := fl.String("checksum", "", "expected content hash (hex)")
	fl.Parse(args)

	if *entity == "" || *from == "" || *to == "" {
		return errors.New("move: -entity, -from and -to are required")
	}

	store, err := openIntentStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	coord := move.NewCoordinator(gw, store, cfg.ChecksumVerify, hash.Algorithm(cfg.HashAlgorithm))
	req := move.Request{
		EntityID:     *entity,
		Kind:         *kind,
		OldPath:      *from,
		NewPath:      *to,
		ExpectedSize: *size,
		ExpectedHash: *sum,
	}

	err = coord.Move(ctx, req, func(ctx context.Context, entityID, kind, newPath string) error {
		fmt.Printf("committed: entity=%s kind=%s path=%s\n", entityID, kind, newPath)
		return nil
	})
	if errors.Is(err, move.ErrAborted) {
		fmt.Println("move aborted, source left in place")
	}
	return err
}

// openIntentStore prefers the shared PostgreSQL table when a database URL
// is configured and falls back to the local SQLite file.
func openIntentStore(cfg *config.Config) (move.Store, error) {
	if cfg.DatabaseURL != "" {
		return move.NewPostgresStore(cfg.DatabaseURL)
	}
	return move.NewSQLiteStore(cfg.IntentDBPath)
}
