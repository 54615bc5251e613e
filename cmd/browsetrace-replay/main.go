package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/vincentbai/browsetrace-replay/internal/capture"
	"github.com/vincentbai/browsetrace-replay/internal/config"
	"github.com/vincentbai/browsetrace-replay/internal/database"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/server"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

type appConfig struct {
	Address                     string  `env:"BROWSETRACE_ADDRESS" envDefault:"127.0.0.1:8123"`
	DBPath                      string  `env:"BROWSETRACE_DB_PATH"`
	ReplaySpeed                 float64 `env:"BROWSETRACE_REPLAY_SPEED" envDefault:"1"`
	TrackMouseMove              bool    `env:"BROWSETRACE_TRACK_MOUSE_MOVE" envDefault:"true"`
	TrackWindowResize           bool    `env:"BROWSETRACE_TRACK_WINDOW_RESIZE" envDefault:"true"`
	MouseMoveThreshold          int     `env:"BROWSETRACE_MOUSE_MOVE_THRESHOLD" envDefault:"100"`
	MouseMoveElapsedMsThreshold int64   `env:"BROWSETRACE_MOUSE_MOVE_ELAPSED_MS_THRESHOLD" envDefault:"1000"`
	ViewportWidth               int     `env:"BROWSETRACE_VIEWPORT_WIDTH" envDefault:"1280"`
	ViewportHeight              int     `env:"BROWSETRACE_VIEWPORT_HEIGHT" envDefault:"720"`
}

const (
	defaultAddress     = "127.0.0.1:8123"
	defaultReplaySpeed = 1.0
)

// newFlagSet binds the command line flags to cfg. Flag defaults match the
// environment defaults so -h shows what an unset run uses.
func newFlagSet(cfg *appConfig, errorHandling flag.ErrorHandling) *flag.FlagSet {
	fs := flag.NewFlagSet("browsetrace-replay", errorHandling)
	fs.StringVar(&cfg.Address, "address", defaultAddress, "listen address for the raw event endpoint")
	fs.StringVar(&cfg.DBPath, "db", "", "path of the replay journal database (default: app data directory)")
	fs.Float64Var(&cfg.ReplaySpeed, "speed", defaultReplaySpeed, "replay speed multiplier applied to recorded delays")
	return fs
}

// loadConfig reads the environment and then args.
func loadConfig(args []string, errorHandling flag.ErrorHandling) (appConfig, error) {
	var cfg appConfig
	fs := newFlagSet(&cfg, errorHandling)
	if err := config.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:], flag.ExitOnError)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	databasePath := cfg.DBPath
	if databasePath == "" {
		applicationDirectory, err := applicationDirectory()
		if err != nil {
			log.Fatal(err)
		}
		databasePath = filepath.Join(applicationDirectory, "replays.db")
	}

	// Initialize database
	db, err := database.NewDatabase(databasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	document := surface.NewDocument(models.Dimension{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight})
	replayer := newJournalReplayer(db, cfg.ReplaySpeed)

	opts := capture.DefaultOptions()
	opts.TrackMouseMove = cfg.TrackMouseMove
	opts.TrackWindowResize = cfg.TrackWindowResize
	opts.MouseMoveThreshold = cfg.MouseMoveThreshold
	opts.MouseMoveElapsedMsThreshold = cfg.MouseMoveElapsedMsThreshold
	var engine *capture.Engine
	opts.OnUserLeaving = func(events models.Log) {
		replayer.Replay(events, engine.WindowDimension())
	}
	engine = capture.New(document, opts, nil)
	engine.Init()

	// Initialize and start server
	srv := server.NewServer(document, db, cfg.Address)
	if err := srv.Start(); err != nil {
		log.Println(err)
		replayer.Stop()
		db.Close()
		os.Exit(1)
	}
	replayer.Stop()
}

// applicationDirectory is the platform-specific app data dir.
func applicationDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	var directory string
	switch runtime.GOOS {
	case "darwin":
		directory = filepath.Join(homeDirectory, "Library", "Application Support", "BrowserTrace")
	case "windows":
		directory = filepath.Join(homeDirectory, "AppData", "Roaming", "BrowserTrace")
	default: // linux and others
		directory = filepath.Join(homeDirectory, ".local", "share", "BrowserTrace")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", err
	}
	return directory, nil
}
