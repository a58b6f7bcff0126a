// Package main is the entry point for the bucketwiki server.
//
// bucketwiki is a wiki backend that stores markdown pages and uploaded
// files in an S3-compatible bucket and exposes a RESTful HTTP API.
// Object store credentials are read from BUCKETWIKI_S3_* environment
// variables; the JWT secret and operational knobs live in a local
// server_config.json (created on first start).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
	"github.com/bucketwiki/bucketwiki/internal/server"
	"github.com/bucketwiki/bucketwiki/internal/server/handlers"
	"github.com/bucketwiki/bucketwiki/internal/server/ratelimit"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bucketwiki: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	configPath := flag.String("config", "server_config.json", "Path to the server configuration file")
	endpoint := flag.String("endpoint", "", "S3 endpoint (host:port); defaults to $BUCKETWIKI_S3_ENDPOINT")
	bucket := flag.String("bucket", "", "Bucket name; defaults to $BUCKETWIKI_S3_BUCKET")
	region := flag.String("region", "", "Bucket region (optional)")
	insecure := flag.Bool("insecure", false, "Use plain HTTP to reach the S3 endpoint")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	if *endpoint == "" {
		*endpoint = os.Getenv("BUCKETWIKI_S3_ENDPOINT")
	}
	if *bucket == "" {
		*bucket = os.Getenv("BUCKETWIKI_S3_BUCKET")
	}
	if *endpoint == "" || *bucket == "" {
		return errors.New("an S3 endpoint and bucket are required (flags or BUCKETWIKI_S3_ENDPOINT / BUCKETWIKI_S3_BUCKET)")
	}
	accessKey := os.Getenv("BUCKETWIKI_S3_ACCESS_KEY")
	secretKey := os.Getenv("BUCKETWIKI_S3_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return errors.New("BUCKETWIKI_S3_ACCESS_KEY and BUCKETWIKI_S3_SECRET_KEY must be set")
	}

	serverCfg, err := server.LoadServerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	store, err := objstore.New(objstore.Config{
		Endpoint:  *endpoint,
		Bucket:    *bucket,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    *region,
		Insecure:  *insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	idx := index.NewStore(store)

	build := func(sc *server.ServerConfig) (http.Handler, *ratelimit.Config) {
		maxFileSize := int64(wiki.DefaultMaxFileSize)
		if sc.MaxFileSizeMB > 0 {
			maxFileSize = sc.MaxFileSizeMB << 20
		}
		maxBody := maxFileSize * 2 // base64 upload bodies are larger than the blob
		if sc.MaxRequestBodyMB > 0 {
			maxBody = sc.MaxRequestBodyMB << 20
		}
		files := wiki.NewFileRepository(store, idx, maxFileSize)
		pages := wiki.NewPageRepository(store, idx, files)
		svc := &handlers.Services{Pages: pages, Files: files, Index: idx, Store: store}
		cfg := &handlers.Config{
			JWTSecret:           sc.JWTSecret,
			Version:             buildVersion,
			MaxRequestBodyBytes: maxBody,
		}
		limits := ratelimit.NewConfig(sc.RateLimits)
		return server.NewRouter(svc, cfg, limits), limits
	}

	routerHandler, limits := build(serverCfg)
	handler := server.NewSwappableHandler(routerHandler)
	var limitsMu sync.Mutex
	defer func() {
		limitsMu.Lock()
		defer limitsMu.Unlock()
		limits.Close()
	}()

	// Rebuild the router when the config file changes so new secrets and
	// limits take effect without a restart.
	if err := server.WatchServerConfig(ctx, *configPath, func(sc *server.ServerConfig) {
		h, nl := build(sc)
		handler.Swap(h)
		limitsMu.Lock()
		old := limits
		limits = nl
		limitsMu.Unlock()
		old.Close()
		slog.InfoContext(ctx, "Reloaded server configuration", "path", *configPath)
	}); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	// Watch own executable for modifications (for development restarts).
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "bucket", *bucket, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("bucketwiki %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and
// calls stop to trigger graceful shutdown when detected. This enables
// seamless restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
