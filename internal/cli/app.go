package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	goruntime "runtime"

	"github.com/atotto/clipboard"

	"github.com/nikbrunner/minimark/internal/checker"
	"github.com/nikbrunner/minimark/internal/config"
	"github.com/nikbrunner/minimark/internal/fetcher"
	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/repository"
	"github.com/nikbrunner/minimark/internal/service"
	"github.com/nikbrunner/minimark/internal/storage"
)

// App is the wired object graph behind every command.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Store   storage.Storage
	Repo    *repository.Repository
	Fetcher *fetcher.Client
	Checker *checker.Checker
	Service *service.Service
}

// OpenApp opens the configured store, loads it and wires the service. When
// auto-archive is enabled it runs once before returning.
func OpenApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    path,
		Redis: storage.RedisOptions{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	repo := repository.New(store, log)
	if err := repo.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	fetch := fetcher.NewClient(fetcher.Options{
		ProxyURL:   cfg.Checker.ProxyURL,
		Timeout:    cfg.Fetch.Timeout,
		MaxRetries: cfg.Fetch.MaxRetries,
		Backoff:    cfg.Fetch.Backoff,
		Logger:     log,
	})

	var online checker.Connectivity = checker.AlwaysOnline{}
	if probe, err := checker.NewProbeConnectivity(cfg.Checker.ProxyURL); err == nil {
		online = probe
	} else {
		log.Warn("connectivity probe disabled", logger.Error(err))
	}

	chk := checker.New(repo, fetch, checker.Options{
		Interval:     cfg.Checker.Interval,
		RecheckAfter: cfg.Checker.RecheckAfter,
		Timeout:      cfg.Checker.Timeout,
		Connectivity: online,
		Logger:       log,
	})

	svc := service.New(repo, fetch, chk, service.Options{
		DeadAfter: cfg.Checker.DeadAfter,
		Logger:    log,
	})

	a := &App{
		Config:  cfg,
		Log:     log,
		Store:   store,
		Repo:    repo,
		Fetcher: fetch,
		Checker: chk,
		Service: svc,
	}

	if cfg.Archive.AutoArchive {
		t, err := service.ParseArchiveThreshold(cfg.Archive.Threshold)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		svc.AutoArchive(ctx, t)
	}
	return a, nil
}

// Close waits for background pastes and closes the store.
func (a *App) Close() error {
	a.Service.Wait()
	err := a.Store.Close()
	_ = a.Log.Sync()
	return err
}

// runtime carries what commands share: the parsed global flags, the output
// stream and the desktop integrations tests replace.
type runtime struct {
	globals *GlobalFlags
	version string
	out     io.Writer

	browse        func(url string) error
	readClipboard func() (string, error)
	copyClipboard func(text string) error
}

func newRuntime(version string) *runtime {
	return &runtime{
		globals:       &GlobalFlags{},
		version:       version,
		out:           os.Stdout,
		browse:        openBrowser,
		readClipboard: clipboard.ReadAll,
		copyClipboard: clipboard.WriteAll,
	}
}

// loadConfig reads .env, then the config file named by --config or the
// default one.
func (rt *runtime) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if rt.globals.Config != "" {
		path, err := config.ExpandPath(rt.globals.Config)
		if err != nil {
			return nil, err
		}
		return config.LoadOrCreateAt(path)
	}
	return config.LoadOrCreate()
}

func (rt *runtime) open(ctx context.Context) (*App, error) {
	cfg, err := rt.loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if rt.globals.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Logging.Pretty)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return OpenApp(ctx, cfg, log)
}

// withApp opens the app, runs fn and closes the app again.
func (rt *runtime) withApp(fn func(ctx context.Context, a *App) error) (err error) {
	ctx := context.Background()
	a, err := rt.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(ctx, a)
}

// openBrowser opens a URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("don't know how to open a browser on %s", goruntime.GOOS)
	}
	return cmd.Start()
}
