package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/config"
	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
	"github.com/johnbean393/hivecrew-retrieval/internal/embed"
	"github.com/johnbean393/hivecrew-retrieval/internal/extract"
	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/service"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
	"github.com/johnbean393/hivecrew-retrieval/internal/watcher"
)

// Daemon assembles every collaborator a running retrieval daemon needs
// (store, policy, extractor, embedding pool, Service, control surface)
// and owns the singleton guard and PID file that keep a second instance
// from starting against the same state directory.
type Daemon struct {
	cfg       Config
	appConfig config.Config
	svc       *service.Service
	server    *Server
	pidFile   *PIDFile
	singleton *embed.FileLock
	store     *store.Store
	logger    *slog.Logger
}

// New assembles a Daemon from cfg and the persisted application
// configuration at appConfigPath (empty uses hardcoded defaults).
func New(cfg Config, appConfigPath string, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	appCfg, err := config.Load(appConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = appCfg.AuthToken
	}

	policyCfg, err := config.PolicyPreset(appCfg.IndexingProfile)
	if err != nil {
		return nil, err
	}
	allowlistRoots := appCfg.StartupAllowlistRoots
	pol := policy.New(policyCfg, allowlistRoots)

	dbPath := filepath.Join(cfg.StateDir, "index.db")
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	extractor := extract.NewExtractionService(extract.BudgetFromPolicyConfig(policyCfg), nil)

	embedCfg := embed.DefaultFactoryConfig().ApplyEnv()
	embedPool, err := embed.NewPoolFromConfig(context.Background(), embedCfg)
	if err != nil {
		_ = st.Close()
		return nil, daemonerr.New(daemonerr.UnavailableEmbeddingRuntime, "failed to build embedding pool", err)
	}

	svc := service.New(service.Deps{
		Store:          st,
		Policy:         pol,
		Extractor:      extractor,
		EmbedPool:      embedPool,
		AllowlistRoots: allowlistRoots,
		AuthToken:      cfg.AuthToken,
		StateDir:       cfg.StateDir,
		Logger:         logger,
	})

	const watcherBufferSize = 4096
	const fileQuietWindow = 2 * time.Second
	for _, root := range allowlistRoots {
		fw, err := watcher.NewFSNotifyWatcher(watcherBufferSize)
		if err != nil {
			logger.Warn("failed to start file watcher", "root", root, "error", err)
			continue
		}
		fc := connector.NewFileConnector(fw, pol, []string{root}, fileQuietWindow)
		svc.RegisterFileConnector(store.SourceFile, root, fc)
	}

	handler := NewServiceHandler(svc)
	server := NewServer(cfg.SocketPath, cfg.AuthToken, handler, logger)
	pidFile := NewPIDFile(cfg.PIDPath)
	singleton := embed.NewFileLock(cfg.StateDir)

	return &Daemon{
		cfg:       cfg,
		appConfig: appCfg,
		svc:       svc,
		server:    server,
		pidFile:   pidFile,
		singleton: singleton,
		store:     st,
		logger:    logger,
	}, nil
}

// Run acquires the singleton lock, writes the PID file, starts the
// Service, and blocks serving the control surface until ctx is
// cancelled. It always cleans up the PID file and singleton lock on the
// way out, even on error.
func (d *Daemon) Run(ctx context.Context) error {
	locked, err := d.singleton.TryLock()
	if err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to acquire daemon singleton lock", err)
	}
	if !locked {
		return daemonerr.Invalid(fmt.Sprintf("another daemon instance already holds %s", d.cfg.StateDir))
	}
	defer d.singleton.Unlock()

	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer d.pidFile.Remove()

	if err := d.svc.Start(ctx); err != nil {
		return err
	}
	defer d.svc.Stop()

	d.logger.Info("daemon started", "socket", d.cfg.SocketPath, "pid", d.pidFile.Path())
	err = d.server.ListenAndServe(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop signals the running server's accept loop to close; Run's
// deferred cleanup handles the rest.
func (d *Daemon) Stop() error {
	return d.server.Close()
}

// Close releases the store handle. Call after Run returns.
func (d *Daemon) Close() error {
	return d.store.Close()
}
