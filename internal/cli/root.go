package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lu-zhengda/sendersweep/internal/audit"
	"github.com/lu-zhengda/sendersweep/internal/config"
	"github.com/lu-zhengda/sendersweep/internal/metrics"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
	"github.com/lu-zhengda/sendersweep/internal/store/sqlite"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag    bool
	verboseFlag bool
	metricsFile string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sendersweep",
		Short: "Find and trash newsletter mail by sender",
		Long: "Scans a Gmail mailbox, scores every sender on how newsletter-like their\n" +
			"mail is, and moves the mail of selected senders to the trash.",
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("sendersweep %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	root.AddCommand(newScanCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newCacheCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every command needs. Commands call close when done.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *sqlite.DB
	engine  *scoring.Engine
	metrics *metrics.Recorder
}

func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(verboseFlag)
	if err != nil {
		return nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		engine:  scoring.New(cfg.Scoring),
		metrics: metrics.New(),
	}, nil
}

func (e *env) close() {
	path := metricsFile
	if path == "" {
		path = e.cfg.Metrics.Textfile
	}
	if err := e.metrics.WriteTextfile(path, time.Now()); err != nil {
		e.log.Warn("metrics not written", zap.Error(err))
	}
	if err := e.db.Close(); err != nil {
		e.log.Warn("failed to close database", zap.Error(err))
	}
	_ = e.log.Sync()
}

func (e *env) auditLog() *audit.Log {
	return audit.New(filepath.Join(config.DataDir(), audit.FileName))
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sendersweep.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.DisableStacktrace = !verbose
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// resolveMinScore returns the --min-score value, or def when the flag was
// not given.
func resolveMinScore(cmd *cobra.Command, value, def float64) (float64, error) {
	if !cmd.Flags().Changed("min-score") {
		return def, nil
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("--min-score %v must be within [0, 1]", value)
	}
	return value, nil
}
