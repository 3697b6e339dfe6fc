package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/deskvault/internal/cli"
	"github.com/forest6511/deskvault/pkg/backup"
	"github.com/forest6511/deskvault/pkg/crypto"
)

// Export command flags
var (
	exportOutput     string
	exportRecipients string
	exportPassphrase bool
	exportArmor      bool
	exportForce      bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().StringVarP(&exportRecipients, "recipient", "r", "", "Seal to comma-separated age public keys (age1...)")
	exportCmd.Flags().BoolVar(&exportPassphrase, "passphrase", false, "Seal with a passphrase ($DESKVAULT_EXPORT_PASSPHRASE or prompt)")
	exportCmd.Flags().BoolVarP(&exportArmor, "armor", "a", false, "Write sealed output as ASCII armor")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Overwrite existing file without confirmation")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the vault to a JSON archive, optionally sealed with age",
	Long: `Export the whole vault as a JSON archive.

Without --recipient or --passphrase the archive is plaintext JSON.

Examples:
  # Plain JSON to a file
  deskvault export -o vault.json

  # Sealed to an age public key (see 'deskvault keygen')
  deskvault export -r age1... -o vault.age

  # Sealed with a passphrase, armored for pasting
  deskvault export --passphrase --armor > vault.age.txt`,
	Args: cobra.NoArgs,
	RunE: executeExport,
}

func executeExport(cmd *cobra.Command, args []string) error {
	recipients := cli.SplitList(exportRecipients)
	if len(recipients) > 0 && exportPassphrase {
		return errors.New("--recipient and --passphrase are mutually exclusive")
	}
	sealed := len(recipients) > 0 || exportPassphrase
	if exportArmor && !sealed {
		return errors.New("--armor requires --recipient or --passphrase")
	}

	var path string
	if exportOutput != "" {
		var err error
		if path, err = validateOutputPath(exportOutput); err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !exportForce {
			return fmt.Errorf("file %s already exists (use --force to overwrite)", path)
		}
	} else if sealed && !exportArmor && term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("refusing to write binary output to a terminal: use --armor or -o")
	}

	opts := backup.SealOptions{Recipients: recipients, Armor: exportArmor}
	if exportPassphrase {
		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(passphrase)
		opts.Passphrase = passphrase
	}

	if err := ensureUnlocked(cmd.Context()); err != nil {
		return err
	}
	doc, err := sess.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to export vault: %w", err)
	}

	data, err := backup.NewArchive(doc, time.Now()).Marshal()
	if err != nil {
		return err
	}
	if sealed {
		plaintext := data
		data, err = backup.Seal(plaintext, opts)
		crypto.SecureWipe(plaintext)
		if err != nil {
			return err
		}
	}

	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := backup.WriteFile(path, data); err != nil {
		return err
	}
	if !sealed {
		fmt.Fprintln(os.Stderr, "Warning: this export is not encrypted. Keep it somewhere safe or use --recipient/--passphrase.")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Vault exported to %s (%d tasks, %d notes)\n", path, len(doc.Tasks), len(doc.Notes))
	return nil
}

// validateOutputPath keeps exports within the current directory, the home
// directory or the temp directory.
func validateOutputPath(p string) (string, error) {
	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	homeDir, _ := os.UserHomeDir()
	for _, prefix := range []string{cwd, homeDir, os.TempDir()} {
		if prefix == "" {
			continue
		}
		rel, err := filepath.Rel(prefix, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return absPath, nil
		}
	}
	return "", errors.New("output path must be within current directory, home directory, or the temp directory")
}

// readNewPassphrase reads an export passphrase, confirming it when typed.
func readNewPassphrase() ([]byte, error) {
	if p, ok := secretFromEnv(envPassphrase); ok {
		return p, nil
	}
	passphrase, err := readSecret(envPassphrase, "Enter export passphrase: ")
	if err != nil {
		return nil, err
	}
	confirm, err := readSecret(envPassphrase, "Confirm export passphrase: ")
	if err != nil {
		crypto.SecureWipe(passphrase)
		return nil, err
	}
	defer crypto.SecureWipe(confirm)
	if string(passphrase) != string(confirm) {
		crypto.SecureWipe(passphrase)
		return nil, errors.New("passphrases do not match")
	}
	return passphrase, nil
}
