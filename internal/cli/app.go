package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/hbnb/internal/filestore"
	"github.com/mesh-intelligence/hbnb/internal/paths"
	"github.com/mesh-intelligence/hbnb/internal/sqlite"
)

// app is the process-wide wiring: one logger, one Store reloaded once, and
// the optional index behind it.
type app struct {
	log   *zap.Logger
	store *filestore.Store
	index *sqlite.Index
}

// openApp resolves directories, loads configuration, builds the logger and
// returns a Store populated from its backing file.
func openApp() (*app, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, systemError("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, systemError("load config: %w", err)
	}

	log, err := newLogger(cfg.GetString(cfgKeyLogLevel), flags.verbose)
	if err != nil {
		return nil, systemError("initialize logger: %w", err)
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, systemError("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, systemError("create data dir: %w", err)
	}

	a := &app{log: log}
	opts := []filestore.Option{filestore.WithLogger(log)}
	if cfg.GetBool(cfgKeyIndex) {
		ix, err := sqlite.Open(dataDir)
		if err != nil {
			log.Warn("index disabled", zap.Error(err))
		} else {
			a.index = ix
			opts = append(opts, filestore.WithIndex(ix))
		}
	}

	path := filepath.Join(dataDir, cfg.GetString(cfgKeyFileName))
	a.store = filestore.New(path, opts...)
	a.store.Reload()

	log.Debug("store ready",
		zap.String("config_dir", configDir),
		zap.String("path", path),
		zap.Bool("index", a.index != nil))
	return a, nil
}

// Close releases the index and flushes the logger.
func (a *app) Close() error {
	var err error
	if a.index != nil {
		err = a.index.Close()
	}
	_ = a.log.Sync()
	return err
}

// newLogger builds a production zap logger writing to stderr at level, or
// at debug when verbose is set.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}
