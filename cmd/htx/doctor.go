package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"pkt.systems/htx/core"
	"pkt.systems/htx/internal/appconfig"
	"pkt.systems/htx/internal/engine"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var selfTest bool
	var sessionTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run htx diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			if err := verifyEngineBinary(cfg.Engine.Binary); err != nil {
				if !selfTest {
					return err
				}
				logger.Warn("engine binary not usable, self-test uses the built-in mock", "err", err)
			} else {
				logger.Info("doctor engine binary ok", "binary", cfg.Engine.Binary)
			}

			if !selfTest {
				logger.Info("doctor complete")
				return nil
			}

			if err := runDoctorSession(cmd.Context(), logger, cfg, sessionTimeout); err != nil {
				return err
			}
			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&selfTest, "self-test", false, "spawn a full session against the built-in mock engine")
	cmd.Flags().DurationVar(&sessionTimeout, "session-timeout", 30*time.Second, "timeout for the self-test session")
	return cmd
}

func verifyEngineBinary(binary string) error {
	if strings.TrimSpace(binary) == "" {
		return fmt.Errorf("engine.binary is empty")
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("engine binary %q not found in PATH: %w", binary, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("engine binary %q: %w", path, err)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("engine binary %q is not executable", path)
	}
	return nil
}

// runDoctorSession drives one full session through the running htx
// binary posing as the engine, exercising spawn, keys, snapshot, and
// shutdown end to end. A temporary ht-mock symlink to the current
// executable triggers the argv0 alias.
func runDoctorSession(ctx context.Context, logger pslog.Logger, cfg appconfig.Config, timeout time.Duration) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("doctor self-test: %w", err)
	}
	dir, err := os.MkdirTemp("", "htx-doctor-")
	if err != nil {
		return fmt.Errorf("doctor self-test: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	mockBinary := filepath.Join(dir, "ht-mock")
	if err := os.Symlink(self, mockBinary); err != nil {
		return fmt.Errorf("doctor self-test: %w", err)
	}
	sup, err := engine.NewSupervisor(engine.Config{
		BinaryPath: mockBinary,
		Subscribe:  cfg.Engine.Subscribe,
	})
	if err != nil {
		return err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sess, err := core.Start(runCtx, sup, core.Options{
		Command: []string{"cat"},
		Rows:    cfg.Terminal.Rows,
		Cols:    cfg.Terminal.Cols,
		Timeouts: core.Timeouts{
			Snapshot:       cfg.Timeouts.Snapshot(),
			Handshake:      cfg.Timeouts.Handshake(),
			TerminateGrace: cfg.Timeouts.TerminateGrace(),
			ExitWait:       cfg.Timeouts.ExitWait(),
		},
	})
	if err != nil {
		return fmt.Errorf("doctor self-test spawn: %w", err)
	}
	logger.Info("doctor session started", "session", sess.ID())

	if err := sess.SendKeys(runCtx, "hello,Enter"); err != nil {
		return fmt.Errorf("doctor self-test keys: %w", err)
	}
	snap, err := sess.Snapshot(runCtx)
	if err != nil {
		return fmt.Errorf("doctor self-test snapshot: %w", err)
	}
	logger.Info("doctor snapshot ok", "rows", snap.Rows, "cols", snap.Cols)

	res, err := sess.Exit(context.WithoutCancel(runCtx))
	if err != nil {
		return fmt.Errorf("doctor self-test exit: %w", err)
	}
	logger.Info("doctor session ok", "engine_exit_code", res.EngineExitCode, "forced", res.Forced)
	return nil
}
