// Package server serves the TUI over SSH. Every session gets its own
// application model and its own orchestrator; only the config is
// shared between sessions.
package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppdx999/lazydb/internal/config"
	"github.com/ppdx999/lazydb/internal/tui"
)

// Server is the SSH front end.
type Server struct {
	config        *config.Config
	authenticator *Authenticator
	sshServer     *ssh.Server
}

// NewServer creates a new SSH server for the given config.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		config:        cfg,
		authenticator: NewAuthenticator(cfg),
	}
}

// Start runs the server until SIGINT or SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	server, err := s.build()
	if err != nil {
		return err
	}
	s.sshServer = server

	log.Printf("listening on %s", s.config.SSHSettings().Listen)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			log.Printf("ssh server error: %v", err)
		}
	}()

	<-done
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// ListenAndServe starts the server without signal handling.
func (s *Server) ListenAndServe() error {
	server, err := s.build()
	if err != nil {
		return err
	}
	s.sshServer = server
	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sshServer != nil {
		return s.sshServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's listen address string.
func (s *Server) Addr() string {
	if s.sshServer != nil {
		return s.sshServer.Addr
	}
	return ""
}

func (s *Server) build() (*ssh.Server, error) {
	sshCfg := s.config.SSHSettings()

	keyDir := filepath.Dir(sshCfg.HostKeyPath)
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create host key directory: %w", err)
	}

	// Order matters: last middleware wraps first.
	middleware := []wish.Middleware{
		bubbletea.Middleware(s.sessionHandler),
		s.ptyMiddleware(),
		loggingMiddleware(),
	}

	opts := []ssh.Option{
		wish.WithAddress(sshCfg.Listen),
		wish.WithHostKeyPath(sshCfg.HostKeyPath),
		wish.WithPublicKeyAuth(s.authenticator.PublicKeyHandler()),
		wish.WithMiddleware(middleware...),
	}
	if sshCfg.AllowKeyless {
		opts = append(opts, wish.WithKeyboardInteractiveAuth(s.authenticator.KeyboardInteractiveHandler()))
	}

	return wish.NewServer(opts...)
}

// sessionHandler builds a fresh application model for one session.
func (s *Server) sessionHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	app := tui.NewApp(s.config, pty.Window.Width, pty.Window.Height)
	return app, []tea.ProgramOption{tea.WithAltScreen()}
}

// ptyMiddleware rejects sessions that cannot host the TUI.
func (s *Server) ptyMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if len(sess.Command()) > 0 {
				wish.Fatalln(sess, "interactive sessions only")
				return
			}
			_, _, hasPty := sess.Pty()
			if !hasPty {
				wish.Fatalln(sess, "PTY required. Use ssh -t.")
				return
			}
			next(sess)
		}
	}
}

func loggingMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			start := time.Now()
			log.Printf("session start user=%s addr=%s", sess.User(), sess.RemoteAddr())
			next(sess)
			log.Printf("session end user=%s duration=%s", sess.User(), time.Since(start).Round(time.Millisecond))
		}
	}
}
