package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/1broseidon/deskshell/internal/compositor"
	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/render"
	"github.com/1broseidon/deskshell/internal/runtimepath"
	"github.com/1broseidon/deskshell/internal/x11"
)

func runSession(args []string) int {
	fs := newFlagSet("run",
		"Usage: deskshell run [--config PATH] [--display NAME]",
		"",
		"Start the session shell on an X display (foreground).",
	)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/deskshell/config.yaml)")
	display := fs.String("display", "", "X display to manage (overrides config and $DISPLAY)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}

	res, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	cfg := res.Config
	log.Printf("Configuration loaded from %s (%d file(s))", res.Path, len(res.Files))

	level := new(slog.LevelVar)
	level.Set(parseLogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dpy := cfg.Display
	if *display != "" {
		dpy = *display
	}
	backend, err := x11.Open(dpy, logger)
	if err != nil {
		log.Printf("Failed to connect to display: %v", err)
		return 1
	}
	defer backend.Disconnect()
	if cfg.Screen.Width > 0 && cfg.Screen.Height > 0 {
		backend.SetScreenSize(platform.Size{Width: cfg.Screen.Width, Height: cfg.Screen.Height})
	}

	opts := compositor.Options{
		Backend:     backend,
		Output:      backend,
		Capturer:    backend,
		Painter:     render.NewPainter(render.Options{FontPaths: cfg.Fonts, Logger: logger.With("component", "render")}),
		Settings:    settingsFromConfig(cfg),
		HistoryPath: historyPath(cfg),
		Logger:      logger,
	}
	if auth := authenticator(cfg, logger); auth != nil {
		opts.Auth = auth
	} else {
		log.Println("Warning: lock.auth_command is not set; the screen cannot be unlocked once locked")
	}

	watcher, err := config.NewWatcher(config.DefaultWatchDebounce, logger)
	if err != nil {
		log.Printf("Warning: config watching disabled: %v", err)
	}

	// Reload runs off the session loop, from IPC, SIGHUP or the watcher.
	var reloadMu sync.Mutex
	opts.Reload = func() (compositor.Settings, error) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		res, err := loadConfig(*configPath)
		if err != nil {
			return compositor.Settings{}, err
		}
		level.Set(parseLogLevel(res.Config.LogLevel))
		if watcher != nil {
			if err := watcher.SetFiles(watchedFiles(res)); err != nil {
				logger.Warn("failed to update config watch", "error", err)
			}
		}
		return settingsFromConfig(res.Config), nil
	}

	shell, err := compositor.New(opts)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		return 1
	}
	control := shell.Control()

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		log.Printf("Failed to resolve control socket: %v", err)
		return 1
	}
	ipcServer, err := ipc.NewServer(socketPath, control)
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
		return 1
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if watcher != nil {
		if err := watcher.SetFiles(watchedFiles(res)); err != nil {
			logger.Warn("failed to watch config files", "error", err)
		}
		go func() {
			err := watcher.Run(ctx, func() {
				log.Println("Config change detected, reloading...")
				if err := control.Reload(ctx); err != nil {
					log.Printf("Config reload failed: %v", err)
				}
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					log.Println("Received SIGHUP, reloading config...")
					if err := control.Reload(ctx); err != nil {
						log.Printf("Config reload failed: %v", err)
						continue
					}
					log.Println("Config reloaded successfully")
				default:
					log.Println("Shutting down deskshell...")
					cancel()
					return
				}
			}
		}
	}()

	log.Printf("deskshell started on %s (control socket %s)", displayName(dpy), socketPath)
	if err := shell.Run(ctx); err != nil {
		log.Printf("Session ended: %v", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// settingsFromConfig maps the file configuration onto the session settings.
func settingsFromConfig(cfg *config.Config) compositor.Settings {
	return compositor.Settings{
		IdleTimeout:      cfg.IdleTimeout,
		PanelHeight:      cfg.PanelHeight,
		SnapThreshold:    cfg.SnapThreshold,
		Apps:             cfg.LaunchApps(),
		User:             cfg.UserName(),
		Avatar:           cfg.Lock.Avatar,
		AuthTimeout:      cfg.Lock.AuthTimeout,
		ScreenshotDir:    cfg.Screenshot.Dir,
		SaveToFile:       cfg.Screenshot.SaveToFile,
		CopyToClipboard:  cfg.Screenshot.CopyToClipboard,
		ShowNotification: cfg.Screenshot.ShowNotification,
		MaxVisible:       cfg.Notifications.MaxVisible,
		MaxHistory:       cfg.Notifications.MaxHistory,
		DefaultTimeout:   cfg.Notifications.DefaultTimeout,
	}
}

// historyPath returns where notification history persists, or "" when it is
// disabled.
func historyPath(cfg *config.Config) string {
	if !cfg.HistoryEnabled() {
		return ""
	}
	if cfg.Notifications.HistoryFile != "" {
		return cfg.Notifications.HistoryFile
	}
	path, err := runtimepath.HistoryPath()
	if err != nil {
		log.Printf("Warning: notification history disabled: %v", err)
		return ""
	}
	return path
}

func authenticator(cfg *config.Config, logger *slog.Logger) lockscreen.Authenticator {
	argv, err := cfg.AuthArgv()
	if err != nil || len(argv) == 0 {
		return nil
	}
	return lockscreen.NewCommandAuthenticator(argv, logger.With("component", "auth"))
}

// watchedFiles is every loaded file plus the top-level path, which may not
// exist yet.
func watchedFiles(res *config.LoadResult) []string {
	files := append([]string(nil), res.Files...)
	for _, f := range files {
		if f == res.Path {
			return files
		}
	}
	if res.Path != "" {
		files = append(files, res.Path)
	}
	return files
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func displayName(dpy string) string {
	if dpy != "" {
		return dpy
	}
	if env := os.Getenv("DISPLAY"); env != "" {
		return env
	}
	return "the default display"
}
