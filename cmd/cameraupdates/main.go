package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CameraUpdates/internal/app"
	"CameraUpdates/internal/config"
	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/logging"
	"CameraUpdates/internal/ports"
)

type options struct {
	once   bool
	list   bool
	brand  string
	typ    string
	search string
	sortBy string
	limit  int
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("cameraupdates", flag.ContinueOnError)
	fs.BoolVar(&opts.once, "once", false, "run a single sync and exit")
	fs.BoolVar(&opts.list, "list", false, "print stored updates and exit")
	fs.StringVar(&opts.brand, "brand", "", "restrict sync or listing to one brand")
	fs.StringVar(&opts.typ, "type", "", "list only firmware, camera or lens updates")
	fs.StringVar(&opts.search, "q", "", "list updates whose title or description contains text")
	fs.StringVar(&opts.sortBy, "sort", string(ports.SortByDate), "list order: date or priority")
	fs.IntVar(&opts.limit, "limit", 50, "maximum listed updates (0 for all)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.typ != "" && !domain.UpdateType(opts.typ).Valid() {
		return options{}, fmt.Errorf("unknown update type %q", opts.typ)
	}
	switch ports.SortField(opts.sortBy) {
	case ports.SortByDate, ports.SortByPriority:
	default:
		return options{}, fmt.Errorf("unknown sort order %q", opts.sortBy)
	}
	return opts, nil
}

func (o options) filter() ports.UpdateFilter {
	return ports.UpdateFilter{
		Brand:  o.brand,
		Type:   domain.UpdateType(o.typ),
		Search: o.search,
		SortBy: ports.SortField(o.sortBy),
		Limit:  o.limit,
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := run(ctx, application, opts); err != nil {
		logger.Error("application stopped", "error", err)
		stop()
		_ = application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application, opts options) error {
	if opts.list {
		updates, err := application.List(ctx, opts.filter())
		if err != nil {
			return err
		}
		printUpdates(os.Stdout, updates)
		return nil
	}

	if opts.brand != "" {
		if err := application.OnlyBrand(opts.brand); err != nil {
			return err
		}
	}

	if opts.once {
		report, err := application.RunOnce(ctx)
		if err != nil {
			return err
		}
		if report.NoNewData {
			fmt.Println("no new data; stored updates kept")
			return nil
		}
		fmt.Printf("run %s: %d found, %d new, %d updated, %d unchanged\n",
			report.RunID, report.Found, report.Stats.Inserted, report.Stats.Updated, report.Stats.Skipped)
		return nil
	}

	return application.Serve(ctx)
}

func printUpdates(w io.Writer, updates []domain.CameraUpdate) {
	if len(updates) == 0 {
		fmt.Fprintln(w, "no stored updates")
		return
	}
	for _, u := range updates {
		version := ""
		if u.Version != "" {
			version = " v" + u.Version
		}
		fmt.Fprintf(w, "%s  %-8s %-9s %-8s %s%s\n",
			u.Date.Format(time.DateOnly), u.Brand, u.Type, u.Priority, u.Title, version)
		if u.Description != "" {
			fmt.Fprintf(w, "    %s\n", strings.TrimSpace(u.Description))
		}
	}
}
