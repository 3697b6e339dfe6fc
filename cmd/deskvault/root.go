package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/deskvault/internal/config"
	"github.com/forest6511/deskvault/internal/logging"
	"github.com/forest6511/deskvault/pkg/crypto"
	"github.com/forest6511/deskvault/pkg/seed"
	"github.com/forest6511/deskvault/pkg/store"
	"github.com/forest6511/deskvault/pkg/vault"
)

// Environment variables that supply secrets non-interactively. Each is
// cleared from the environment once read.
const (
	envPassword   = "DESKVAULT_PASSWORD"
	envPassphrase = "DESKVAULT_EXPORT_PASSPHRASE"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	st     *store.Store
	sess   *vault.Session
)

var rootCmd = &cobra.Command{
	Use:          "deskvault",
	Short:        "deskvault is an encrypted local vault for tasks, notes and goals",
	Long:         `A single-user task and notes dashboard whose data lives in one encrypted vault.`,
	SilenceUsage: true,
	// PersistentPreRunE runs before every subcommand and opens the session.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsVault(cmd) {
			return nil
		}
		return openSession()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		closeSession()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $DESKVAULT_CONFIG or ~/.deskvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}

// needsVault reports whether cmd works on the vault.
func needsVault(cmd *cobra.Command) bool {
	if cmd == rootCmd || !cmd.Runnable() {
		return false
	}
	switch cmd.Name() {
	case "completion", "help", "keygen", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return false
	}
	return true
}

// openSession loads the config and opens a locked session over the
// configured store.
func openSession() error {
	home, err := config.HomeDir()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(home)
	}
	cfg, err = config.Resolve(home, path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	logger = logging.New(os.Stderr, cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(logger)

	st, err = store.Open(cfg.Store.Driver, cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("vault at %s is in use by another deskvault process", cfg.Store.Path)
		}
		return fmt.Errorf("failed to open vault store: %w", err)
	}

	opts := []vault.Option{vault.WithLogger(logger)}
	if cfg.Seed.Dir != "" {
		opts = append(opts, vault.WithSeed(seed.NewDir(cfg.Seed.Dir)))
	}
	sess = vault.New(st, opts...)
	return nil
}

// closeSession locks the session and releases the store. Safe to call
// more than once.
func closeSession() {
	if sess != nil {
		sess.Lock()
		sess = nil
	}
	if st != nil {
		if err := st.Close(); err != nil && logger != nil {
			logger.Warn("failed to close vault store", "err", err)
		}
		st = nil
	}
}

// ensureUnlocked ensures the vault is unlocked.
// If locked, prompts for the password and attempts to unlock.
func ensureUnlocked(ctx context.Context) error {
	if sess.State() == vault.StateUnlocked {
		return nil
	}
	if err := requireVault(ctx); err != nil {
		return err
	}

	password, err := readPassword("Enter master password: ")
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(password)
	return unlockWith(ctx, password)
}

func requireVault(ctx context.Context) error {
	exists, err := sess.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("no vault found: run 'deskvault init' first")
	}
	return nil
}

// unlockWith unlocks the session with password, turning unlock failures
// into a message for the user.
func unlockWith(ctx context.Context, password []byte) error {
	if err := sess.Unlock(ctx, password); err != nil {
		if errors.Is(err, vault.ErrUnlockFailed) {
			return errors.New("failed to unlock vault: wrong password or damaged vault")
		}
		return fmt.Errorf("failed to unlock vault: %w", err)
	}
	return nil
}

// readPassword returns $DESKVAULT_PASSWORD if set, otherwise prompts on the
// terminal without echo.
func readPassword(prompt string) ([]byte, error) {
	return readSecret(envPassword, prompt)
}

// readSecret returns the value of env if set, otherwise prompts on the
// terminal without echo. The variable is cleared once read.
func readSecret(env, prompt string) ([]byte, error) {
	if secret, ok := secretFromEnv(env); ok {
		return secret, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal to read from: set %s", env)
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return secret, nil
}

// passwordFromEnv reads and clears $DESKVAULT_PASSWORD.
func passwordFromEnv() ([]byte, bool) {
	return secretFromEnv(envPassword)
}

func secretFromEnv(env string) ([]byte, bool) {
	secret, ok := os.LookupEnv(env)
	os.Unsetenv(env)
	if !ok || secret == "" {
		return nil, false
	}
	return []byte(secret), true
}
