// lazydb is a keyboard-driven TUI client for MySQL, PostgreSQL and
// SQLite. It runs locally or as an SSH server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ppdx999/lazydb/internal/config"
	"github.com/ppdx999/lazydb/internal/server"
	"github.com/ppdx999/lazydb/internal/tui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	sshMode := flag.Bool("ssh", false, "run SSH server mode")
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("lazydb %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath, flag.Args())
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if *sshMode {
		if err := runSSHServer(cfg); err != nil {
			log.Fatalf("SSH server error: %v", err)
		}
		return
	}

	if err := runLocalTUI(cfg); err != nil {
		log.Fatalf("TUI error: %v", err)
	}
}

func printUsage() {
	fmt.Println("lazydb - terminal client for MySQL, PostgreSQL and SQLite")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lazydb                           Open with the default config")
	fmt.Println("  lazydb <path.db> [...]           Open SQLite files directly")
	fmt.Println("  lazydb -config <file>            Use a specific config file")
	fmt.Println("  lazydb -ssh -config <file>       SSH server mode")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  lazydb mydb.db")
	fmt.Println("  lazydb 'data/**/*.db'")
	fmt.Println("  lazydb -config lazydb.yaml")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// loadConfig resolves the effective configuration: an explicit -config
// file, or the default locations, or a synthetic config built from
// SQLite paths given as arguments.
func loadConfig(path string, args []string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	if len(args) > 0 {
		cfg := config.DefaultConfig()
		for _, arg := range args {
			cfg.Connections = append(cfg.Connections, config.Connection{
				Kind: "sqlite",
				Path: arg,
			})
		}
		return cfg, nil
	}

	for _, candidate := range defaultConfigPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return nil, fmt.Errorf("no config found; pass -config, a sqlite path, or create lazydb.yaml")
}

func defaultConfigPaths() []string {
	paths := []string{"lazydb.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lazydb", "config.yaml"))
	}
	return paths
}

// runLocalTUI runs the interactive TUI on the local terminal.
func runLocalTUI(cfg *config.Config) error {
	width, height := 80, 24
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	app := tui.NewApp(cfg, width, height)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Push config reloads into the running program.
	watcher, err := config.NewWatcher(cfg, func(reloaded *config.Config) {
		p.Send(tui.ConfigReloadedMsg{Config: reloaded})
	})
	if err != nil {
		log.Printf("warning: config watcher unavailable: %v", err)
	} else {
		if err := watcher.Start(); err != nil {
			log.Printf("warning: failed to watch config: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	_, err = p.Run()
	return err
}

// runSSHServer serves the TUI over SSH. New sessions pick up config
// reloads; running sessions keep their connection list.
func runSSHServer(cfg *config.Config) error {
	watcher, err := config.NewWatcher(cfg, func(*config.Config) {
		log.Println("config reloaded")
	})
	if err != nil {
		log.Printf("warning: config watcher unavailable: %v", err)
	} else {
		if err := watcher.Start(); err != nil {
			log.Printf("warning: failed to watch config: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	return server.NewServer(cfg).Start()
}
