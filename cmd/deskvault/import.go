package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/deskvault/pkg/backup"
	"github.com/forest6511/deskvault/pkg/crypto"
)

var (
	importYes      bool
	importIdentity string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Replace the vault without asking")
	importCmd.Flags().StringVarP(&importIdentity, "identity", "i", "", "age identity file for sealed exports")
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the vault contents with an export archive",
	Long: `Replace the whole vault with the contents of an export archive.

Sealed archives are detected automatically and opened with --identity, or
with a passphrase ($DESKVAULT_EXPORT_PASSPHRASE or prompt). Use '-' to read
from stdin. Import replaces everything; it does not merge.

Examples:
  deskvault import vault.json
  deskvault import vault.age -i ~/.deskvault/export.key --yes`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	data, err := readImportFile(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	if backup.IsSealed(data) {
		opened, err := openSealed(data)
		if err != nil {
			return err
		}
		data = opened
		defer crypto.SecureWipe(data)
	}

	archive, err := backup.ParseArchive(data)
	if err != nil {
		return fmt.Errorf("invalid export file: %w", err)
	}

	if err := ensureUnlocked(cmd.Context()); err != nil {
		return err
	}
	current, err := sess.Document()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current vault: %d tasks, %d notes, %d activity entries\n",
		len(current.Tasks), len(current.Notes), len(current.Activity))
	fmt.Fprintf(out, "Import:        %d tasks, %d notes, %d activity entries", len(archive.Vault.Tasks), len(archive.Vault.Notes), len(archive.Vault.Activity))
	if !archive.Meta.ExportedAt.IsZero() {
		fmt.Fprintf(out, " (exported %s)", archive.Meta.ExportedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out)

	if !importYes {
		if args[0] == "-" || !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("refusing to replace the vault without confirmation: pass --yes")
		}
		if !confirm(cmd.InOrStdin(), out, "Replace the current vault with this export? [y/N]: ") {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	if err := sess.Import(cmd.Context(), archive.Vault); err != nil {
		return fmt.Errorf("failed to import vault: %w", err)
	}
	fmt.Fprintln(out, "Vault replaced from export")
	return nil
}

func readImportFile(path string, stdin io.Reader) ([]byte, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	// Sealed and armored files are somewhat larger than the archive.
	limit := int64(backup.MaxArchiveSize) * 2
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is too large to be a deskvault export", path)
	}
	return data, nil
}

func openSealed(data []byte) ([]byte, error) {
	var opts backup.OpenOptions
	if importIdentity != "" {
		identities, err := os.ReadFile(importIdentity)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity file: %w", err)
		}
		opts.Identities = string(identities)
	} else {
		passphrase, err := readSecret(envPassphrase, "Enter export passphrase: ")
		if err != nil {
			return nil, err
		}
		defer crypto.SecureWipe(passphrase)
		opts.Passphrase = passphrase
	}

	plaintext, err := backup.Open(data, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed export: %w", err)
	}
	return plaintext, nil
}

// confirm asks a yes/no question; anything but y or yes means no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
