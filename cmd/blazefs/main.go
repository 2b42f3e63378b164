// Command blazefs serves a directory tree over HTTP/1.1 with
// conditional requests, byte-range resumption, content-encoding
// negotiation, directory listings, and on-demand ZIP archival.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"

	"github.com/blazehttp/blazefs/internal/config"
	"github.com/blazehttp/blazefs/internal/engine"
	"github.com/blazehttp/blazefs/internal/logging"
	"github.com/blazehttp/blazefs/internal/reload"
	"github.com/blazehttp/blazefs/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	raw := config.DefaultRawArgs()

	pflag.StringVarP(&raw.Bind, "bind", "b", raw.Bind, "bind address")
	pflag.Uint16VarP(&raw.Port, "port", "p", raw.Port, "TCP port")
	pflag.Uint64VarP(&raw.CacheMaxAge, "cache", "c", raw.CacheMaxAge, "Cache-Control max-age in seconds")
	pflag.BoolVarP(&raw.CORS, "cors", "C", false, "emit CORS headers")
	pflag.BoolVar(&raw.COI, "coi", false, "emit COEP/COOP headers")
	unzipped := pflag.BoolP("unzipped", "Z", false, "disable compression")
	pflag.BoolVarP(&raw.All, "all", "a", false, "serve dotfiles")
	noIgnore := pflag.BoolP("no-ignore", "I", false, "ignore .gitignore")
	noLog := pflag.Bool("no-log", false, "suppress access log")
	pflag.BoolVarP(&raw.FollowLinks, "follow-links", "L", false, "allow symlinks outside root")
	pflag.BoolVarP(&raw.RenderIndex, "render-index", "r", false, "serve <dir>/index.html for dir hits")
	pflag.StringVar(&raw.PathPrefix, "path-prefix", "", "expect and strip leading URL prefix")
	pflag.StringVar(&raw.UserStyle, "style", "", "extra CSS for the listing page")
	pflag.BoolVar(&raw.Watch, "watch", false, "live-reload listing pages on filesystem changes")
	pflag.Parse()

	raw.Compress = !*unzipped
	raw.Ignore = !*noIgnore
	raw.Log = !*noLog
	if args := pflag.Args(); len(args) > 0 {
		raw.Root = args[0]
	}

	osFs := afero.NewOsFs()
	cfg, err := config.Build(raw, osFs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := logging.New(logging.DevelopmentConfig())
	logging.SetDefault(logger)

	ignorer, err := engine.LoadIgnorer(cfg.Root)
	if err != nil {
		logger.Error("compiling .gitignore", "error", err)
		return 1
	}

	onLog := func(entry engine.AccessLogEntry, when time.Time, bytesSent int64) {
		fmt.Println(engine.FormatCommonLog(entry, when, bytesSent))
	}

	pipeline := engine.NewPipeline(cfg, osFs, ignorer, version.ServerHeader(), onLog)

	var hub *reload.Hub
	var watcher *reload.Watcher
	if cfg.Watch {
		hub = reload.NewHub()
		watcher, err = reload.NewWatcher(cfg.Root, hub)
		if err != nil {
			logger.Error("starting filesystem watcher", "error", err)
			return 1
		}
		defer watcher.Close()
	}

	handler := func(ctx *fasthttp.RequestCtx) {
		if hub != nil && string(ctx.Path()) == reload.Endpoint {
			hub.Handle(ctx)
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", "error", r, "path", string(ctx.Path()))
				ctx.SetStatusCode(500)
				ctx.SetBodyString(engine.CannedBody(500))
			}
		}()
		pipeline.Handle(ctx)
	}

	srv := engine.NewServer(handler)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr()), slog.String("root", cfg.Root))
		serveErr <- srv.ListenAndServe(cfg.Addr())
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped", "error", err)
			return 1
		}
		return 0
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.GracefulShutdown(ctx); err != nil {
			logger.Error("graceful shutdown", "error", err)
			return 1
		}
		return 0
	}
}
