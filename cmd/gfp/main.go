// Command gfp inspects, lists, unpacks and indexes pak archives.
//
// Usage:
//
//	gfp [-v7|-v10] [-debug] <command> [flags] [args]
//
// Commands:
//
//	info   [pattern]                    print the trailer of each pak
//	ls     [-n] [-l] <pattern>          list entry paths
//	unpack [-n] [-j N] [-skip-existing] <pattern> <out>
//	index  [-r base] [-i] [-digest] <pattern> <out>
//
// A pattern is a glob, a directory (searched for **/*.pak) or a single pak.
// info, ls and unpack also accept an http(s) URL of one pak.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Benborbar/gfp"
	pak "github.com/Benborbar/gfp/core"
	"github.com/Benborbar/gfp/core/remote"
)

// errFailed reports that at least one pak failed; details were already logged.
var errFailed = errors.New("one or more paks failed")

type app struct {
	dialect gfp.Dialect
	logger  *slog.Logger
	stdout  io.Writer
}

func main() {
	global := flag.NewFlagSet("gfp", flag.ExitOnError)
	v7 := global.Bool("v7", false, "read avatarpaks (dialect 7)")
	v10 := global.Bool("v10", false, "read game paks (dialect 10, the default)")
	debug := global.Bool("debug", false, "enable debug logging")
	global.Usage = func() { usage(global) }
	_ = global.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError

	if *v7 && *v10 {
		fmt.Fprintln(os.Stderr, "gfp: -v7 and -v10 are mutually exclusive")
		os.Exit(2)
	}
	args := global.Args()
	if len(args) == 0 {
		usage(global)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	a := &app{
		dialect: gfp.DialectGame,
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		stdout:  os.Stdout,
	}
	if *v7 {
		a.dialect = gfp.DialectAvatar
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch args[0] {
	case "info":
		err = a.info(ctx, args[1:])
	case "ls":
		err = a.ls(ctx, args[1:])
	case "unpack":
		err = a.unpack(ctx, args[1:])
	case "index":
		err = a.index(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "gfp: unknown command %q\n", args[0])
		usage(global)
		os.Exit(2)
	}
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "gfp: %v\n", err)
		}
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func usage(fs *flag.FlagSet) {
	fmt.Fprint(fs.Output(), `usage: gfp [-v7|-v10] [-debug] <command> [flags] [args]

commands:
  info   [pattern]                          print the trailer of each pak (default pattern **/*.pak)
  ls     [-n] [-l] <pattern>                list entry paths
  unpack [-n] [-j N] [-skip-existing] <pattern> <out>
                                            extract every entry below out
  index  [-r base] [-i] [-digest] <pattern> <out>
                                            write one listing per pak below out

global flags:
`)
	fs.PrintDefaults()
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// eachPak calls fn for every pak named by arg, which is a URL or a pattern.
// Failures are logged and the walk continues; errFailed is returned at the
// end if anything failed.
func (a *app) eachPak(ctx context.Context, arg string, fn func(path string, p pak.Archive) error) error {
	if isURL(arg) {
		p, err := a.openRemote(ctx, arg)
		if err != nil {
			return err
		}
		defer p.Close()
		return fn(arg, p)
	}

	paks, err := gfp.OpenGlob(gfp.PreparePattern(arg), a.dialect, gfp.WithLogger(a.logger))
	if err != nil {
		return err
	}
	failed := false
	for path, p := range paks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(path, p); err != nil {
			a.logger.Error("pak failed", "pak", path, "error", err)
			failed = true
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func (a *app) openRemote(ctx context.Context, url string) (pak.Archive, error) {
	src, err := remote.NewSource(ctx, url)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("remote pak", "url", url, "size", humanize.IBytes(uint64(src.Size()))) //nolint:gosec // size is non-negative
	return pak.OpenSource(src, a.dialect, pak.WithLogger(a.logger))
}

func (a *app) info(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError

	pattern := fs.Arg(0)
	return a.eachPak(ctx, pattern, func(path string, p pak.Archive) error {
		t, err := p.Trailer()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, path)
		fmt.Fprintf(a.stdout, "  IsEncrypted: %t\n", t.Encrypted)
		fmt.Fprintf(a.stdout, "  Version: %d\n", t.Version)
		fmt.Fprintf(a.stdout, "  Index: %s at %#x\n", humanize.IBytes(t.IndexSize), t.IndexOffset)
		return nil
	})
}

func (a *app) ls(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	number := fs.Bool("n", false, "prefix each path with its entry id")
	long := fs.Bool("l", false, "show decoded and stored sizes")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		return errors.New("ls: expected <pattern>")
	}

	return a.eachPak(ctx, fs.Arg(0), func(path string, p pak.Archive) error {
		count, err := p.EntryCount()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s (%d entries)\n", path, count)
		for id := range count {
			info, err := p.EntryInfo(id)
			if err != nil {
				return err
			}
			line := info.Path
			if *long {
				line = fmt.Sprintf("%10s %10s %-4s %s",
					humanize.IBytes(info.Size), humanize.IBytes(info.CompressedSize), info.Compression, line)
			}
			if *number {
				line = fmt.Sprintf("%d: %s", id, line)
			}
			fmt.Fprintln(a.stdout, line)
		}
		return nil
	})
}

func (a *app) unpack(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	number := fs.Bool("n", false, "print each entry as it is extracted")
	workers := fs.Int("j", 1, "number of paks to unpack at once")
	skip := fs.Bool("skip-existing", false, "keep files that already exist in out")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 2 {
		return errors.New("unpack: expected <pattern> <out>")
	}
	pattern, out := fs.Arg(0), fs.Arg(1)

	var progress gfp.ProgressFunc
	if *number {
		progress = func(e gfp.ProgressEvent) {
			if e.Stage == gfp.StageExtracting {
				a.logger.Info("extracted", "pak", e.Pak, "id", e.EntryID, "path", e.Path)
			}
		}
	}

	if isURL(pattern) {
		p, err := a.openRemote(ctx, pattern)
		if err != nil {
			return err
		}
		defer p.Close()
		stats, err := pak.ExtractAll(ctx, p, out,
			pak.ExtractWithOverwrite(!*skip),
			pak.ExtractWithProgress(pattern, progress))
		if err != nil {
			return err
		}
		a.summary(1, 0, stats)
		return nil
	}

	reports, err := gfp.Unpack(ctx, gfp.PreparePattern(pattern), a.dialect, out,
		gfp.WithWorkers(*workers),
		gfp.WithLogger(a.logger),
		gfp.WithSkipExisting(*skip),
		gfp.WithProgress(progress))
	if err != nil {
		return err
	}

	var total pak.ExtractStats
	for _, r := range reports {
		total.Add(r.Stats)
	}
	failed := len(gfp.Failed(reports))
	a.summary(len(reports)-failed, failed, total)
	if failed > 0 {
		return errFailed
	}
	return nil
}

func (a *app) summary(ok, failed int, stats pak.ExtractStats) {
	fmt.Fprintf(a.stdout, "unpacked %d paks (%d failed): %d files written, %d skipped, %s\n",
		ok, failed, stats.Processed, stats.Skipped, humanize.IBytes(stats.TotalBytes))
}

func (a *app) index(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	base := fs.String("r", ".", "base directory that index paths are relative to")
	echo := fs.Bool("i", false, "also print every index line")
	digests := fs.Bool("digest", false, "prefix each line with the entry's sha256 digest and size")
	workers := fs.Int("j", 1, "number of paks to index at once")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 2 {
		return errors.New("index: expected <pattern> <out>")
	}
	if isURL(fs.Arg(0)) {
		return errors.New("index: URLs are not supported")
	}

	opts := []gfp.Option{
		gfp.WithWorkers(*workers),
		gfp.WithLogger(a.logger),
		gfp.WithDigests(*digests),
	}
	if *echo {
		opts = append(opts, gfp.WithEcho(a.stdout))
	}
	reports, err := gfp.WriteIndex(ctx, gfp.PreparePattern(fs.Arg(0)), a.dialect, *base, fs.Arg(1), opts...)
	if err != nil {
		return err
	}
	if len(gfp.Failed(reports)) > 0 {
		return errFailed
	}
	return nil
}
