package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/BTreeMap/IntakePipe/internal/api"
	"github.com/BTreeMap/IntakePipe/internal/genai"
	"github.com/BTreeMap/IntakePipe/internal/intake"
	"github.com/BTreeMap/IntakePipe/internal/lockfile"
	"github.com/BTreeMap/IntakePipe/internal/scheduler"
	"github.com/BTreeMap/IntakePipe/internal/session"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for intake state data
	DefaultStateDir = "/var/lib/intakepipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "intakepipe.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("IntakePipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("IntakePipe exited successfully")
}

func run(flags Flags) error {
	// Single-instance guard on the state directory.
	guard, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		return err
	}
	defer guard.Release()

	st, err := openStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := intake.NewOrchestrator(st, nil)

	apiOpts := []api.Option{}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}

	if *flags.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *flags.redisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return err
		}
		defer client.Close()
		apiOpts = append(apiOpts, api.WithLockStore(session.NewRedisLockStore(client)))
		slog.Info("Redis lock store configured", "addr", *flags.redisAddr)
	} else {
		slog.Warn("No Redis address configured; multi-tab locking is disabled")
	}

	if *flags.openaiKey != "" {
		notes, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, api.WithNotes(notes))
		slog.Info("Clinical note generation enabled")
	} else {
		slog.Info("No OpenAI key configured; reports render without generated notes")
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := scheduler.ScheduleMaintenance(sched, st); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(st, orch, apiOpts...)
	return srv.Start(ctx)
}

// openStore picks the backend from the DSN shape.
func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("No database DSN provided, using in-memory store; state will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Info("Opening PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Info("Opening SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	RedisAddr   string
	OpenAIKey   string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir  *string
	dbDSN     *string
	redisAddr *string
	openaiKey *string
	apiAddr   *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("INTAKEPIPE_STATE_DIR"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTAKEPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	// No database URL means SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTAKEPIPE_STATE_DIR", config.StateDir,
		"REDIS_ADDR", config.RedisAddr,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for IntakePipe data (overrides $INTAKEPIPE_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for the record store (overrides $DATABASE_URL)"),
		redisAddr: flag.String("redis-addr", config.RedisAddr, "Redis address for lock leases (overrides $REDIS_ADDR)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for clinical notes (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	// Keep the SQLite default inside the state directory when only the state
	// directory was overridden.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr", *flags.redisAddr,
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	return flags
}
