package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/pkg/crypto"
	"github.com/forest6511/deskvault/pkg/security"
	"github.com/forest6511/deskvault/pkg/store"
)

// initCmd initializes a new vault
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes a new encrypted vault",
	Long: `Initializes a new vault protected by a master password.

If seed.dir is configured, tasks, notes and the goal found there are merged
into the new vault. A missing or unreadable seed only produces a warning.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		exists, err := sess.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("a vault already exists at %s", describeStore())
		}

		fmt.Fprintln(out, "Initializing new vault...")

		// 1. Read and confirm the master password
		password, confirm, err := readNewPassword()
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(password)
		defer crypto.SecureWipe(confirm)

		if !bytes.Equal(password, confirm) {
			return errors.New("passwords do not match")
		}

		// 2. Validate password strength (warnings are advisory, not blocking)
		result := security.ValidateMasterPassword(string(password))
		if !result.Valid {
			return fmt.Errorf("password validation failed: %s", result.Warnings[0])
		}
		fmt.Fprintf(out, "Password strength: %s\n", result.Strength)
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "Warning: %s\n", warning)
		}

		// 3. Create the vault
		if err := sess.Create(ctx, password, confirm); err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}

		doc, err := sess.Document()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Vault initialized successfully at %s\n", describeStore())
		if len(doc.Tasks) > 0 || len(doc.Notes) > 0 || !doc.Goals.Primary.IsZero() {
			fmt.Fprintln(out, doc.Activity[0].Text)
		}
		return nil
	},
}

// readNewPassword reads a password and its confirmation. With
// $DESKVAULT_PASSWORD set, the variable serves as both.
func readNewPassword() (password, confirm []byte, err error) {
	if p, ok := passwordFromEnv(); ok {
		return p, bytes.Clone(p), nil
	}
	password, err = readPassword("Enter master password: ")
	if err != nil {
		return nil, nil, err
	}
	confirm, err = readPassword("Confirm master password: ")
	if err != nil {
		crypto.SecureWipe(password)
		return nil, nil, err
	}
	return password, confirm, nil
}

// describeStore names the configured vault location.
func describeStore() string {
	if cfg.Store.Driver == store.DriverMemory {
		return "memory (not persisted)"
	}
	return fmt.Sprintf("%s (%s)", cfg.Store.Path, cfg.Store.Driver)
}
