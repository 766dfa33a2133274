package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnbean393/hivecrew-retrieval/internal/daemon"
	"github.com/johnbean393/hivecrew-retrieval/internal/logging"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background retrieval daemon",
		Long: `The daemon keeps the index, embedder pool, and file watchers running
so suggest/createContextPack calls answer without a cold start.

Commands:
  start   Start the daemon (runs in background by default)
  stop    Stop the running daemon
  status  Show daemon status and health`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var foreground bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStart(cmd.Context(), cmd, foreground, configPath)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (don't daemonize)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the JSON configuration file")
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStop(cmd)
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonQuickStatus(cmd)
		},
	}
}

func runDaemonStart(ctx context.Context, cmd *cobra.Command, foreground bool, configPath string) error {
	out := cmd.OutOrStdout()
	cfg := daemon.DefaultConfig()

	client := daemon.NewClient(cfg)
	if client.IsRunning() {
		fmt.Fprintln(out, "Daemon is already running")
		return nil
	}

	if foreground {
		logCfg := logging.DefaultConfig(cfg.StateDir)
		logCfg.WriteToStderr = true
		logger, cleanup, err := logging.Setup(cfg.StateDir, logCfg)
		if err == nil {
			defer cleanup()
		}

		fmt.Fprintln(out, "Starting daemon in foreground...")
		fmt.Fprintf(out, "Socket: %s\n", cfg.SocketPath)
		fmt.Fprintln(out, "Press Ctrl+C to stop")

		d, err := daemon.New(cfg, configPath, logger)
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}
		defer d.Close()
		return d.Run(ctx)
	}

	fmt.Fprintln(out, "Starting daemon in background...")

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"daemon", "start", "--foreground"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	bgCmd := exec.Command(execPath, args...)
	bgCmd.Stdout = nil
	bgCmd.Stderr = nil
	bgCmd.Stdin = nil
	bgCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := bgCmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- bgCmd.Wait() }()

	for i := 0; i < 50; i++ {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("daemon process exited unexpectedly: %w", err)
			}
			return fmt.Errorf("daemon process exited unexpectedly with code 0")
		default:
		}

		time.Sleep(100 * time.Millisecond)
		if client.IsRunning() {
			fmt.Fprintf(out, "Daemon started (pid: %d)\n", bgCmd.Process.Pid)
			return nil
		}
	}

	return fmt.Errorf("daemon failed to start within timeout")
}

func runDaemonStop(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg := daemon.DefaultConfig()
	pidFile := daemon.NewPIDFile(cfg.PIDPath)

	if !pidFile.IsRunning() {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	pid, err := pidFile.Read()
	if err != nil {
		return fmt.Errorf("failed to read PID: %w", err)
	}

	if err := pidFile.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !pidFile.IsRunning() {
			fmt.Fprintf(out, "Daemon stopped (was pid: %d)\n", pid)
			return nil
		}
	}

	fmt.Fprintln(out, "Daemon not responding, sending SIGKILL...")
	if err := pidFile.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill daemon: %w", err)
	}
	fmt.Fprintln(out, "Daemon killed")
	return nil
}

func runDaemonQuickStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)

	if !client.IsRunning() {
		fmt.Fprintln(out, "Daemon is not running")
		fmt.Fprintln(out, "Run 'retrieval-daemon daemon start' to start it")
		return nil
	}
	fmt.Fprintln(out, "Daemon is running")
	fmt.Fprintf(out, "  Socket: %s\n", cfg.SocketPath)
	return nil
}
