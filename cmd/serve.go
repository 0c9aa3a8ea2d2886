package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/hyperguess/internal/api"
	"github.com/joescharf/hyperguess/internal/daemon"
)

var (
	serveDifficulty string
	serveStopForce  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game over a JSON HTTP API",
	Long: `Start an HTTP server exposing the game as a JSON API.
By default it listens on port 8080. Use --port to change it.

  GET  /api/v1/difficulties
  GET  /api/v1/game[?wait=true]
  POST /api/v1/game             {"difficulty": "easy"}
  POST /api/v1/game/guesses     {"guess": 42}   (?wait=true blocks for the host's reply)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().StringVarP(&serveDifficulty, "difficulty", "d", "", "Starting difficulty (default from config)")
	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))

	serveStopCmd.Flags().BoolVar(&serveStopForce, "force", false, "Kill the server instead of asking it to shut down")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file tracking the server process.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "hyperguess-serve.pid"))
}

func serveRun(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	pf := pidFile()
	if info, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d, addr %s)", info.PID, info.Addr)
	}

	c, err := newController(serveDifficulty)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := fmt.Sprintf(":%d", viper.GetInt("serve.port"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(c).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if dryRun {
		ui.DryRunMsg("Would serve the game API at http://localhost%s", addr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(pf.Path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := pf.Write(addr); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	defer func() { _ = pf.Remove() }()

	ctx, stop := signal.NotifyContext(parent, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Success("Serving the game API at http://localhost%s", addr)
	slog.Debug("http server started", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Debug("http server stopped")
	return nil
}

func serveStatusRun() error {
	info, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server running (pid %d) at http://localhost%s", info.PID, info.Addr)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	info, running := pf.IsRunning()
	if !running {
		ui.Info("Server is not running")
		if info.PID != 0 {
			// Stale file left behind by a crashed server.
			_ = pf.Remove()
		}
		return nil
	}

	sig := sigTERM()
	if serveStopForce {
		sig = sigKILL()
	}

	if dryRun {
		ui.DryRunMsg("Would send %v to pid %d", sig, info.PID)
		return nil
	}

	if err := pf.Signal(sig); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	if serveStopForce {
		_ = pf.Remove()
	}
	ui.Success("Stopped server (pid %d)", info.PID)
	return nil
}
