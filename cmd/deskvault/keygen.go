package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/pkg/backup"
)

var (
	keygenOutput string
	keygenForce  bool
)

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "Write the identity to this file instead of stdout")
	keygenCmd.Flags().BoolVar(&keygenForce, "force", false, "Overwrite an existing identity file")
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an age keypair for sealing exports",
	Long: `Generate an age X25519 keypair. The public key (age1...) is passed to
'deskvault export --recipient'; the identity file is passed to
'deskvault import --identity'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := backup.GenerateKeypair()
		if err != nil {
			return err
		}
		identity := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
			time.Now().Format(time.RFC3339), kp.PublicKey, kp.PrivateKey)

		if keygenOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), identity)
			return nil
		}

		path, err := validateOutputPath(keygenOutput)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !keygenForce {
			return fmt.Errorf("file %s already exists (use --force to overwrite)", path)
		}
		if err := backup.WriteFile(path, []byte(identity)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Identity written to %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", kp.PublicKey)
		return nil
	},
}
