package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gorecovery/txbuilder"
	"gorecovery/txvalidator"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Issue a bearer session token for the validation endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("RECOVERY_AUTH_JWT_SECRET")
		if secret == "" {
			return errors.New("RECOVERY_AUTH_JWT_SECRET is not set")
		}
		wallet, _ := cmd.Flags().GetString("wallet")
		if err := txbuilder.ValidateAddress(wallet); err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := txvalidator.IssueSession([]byte(secret), subject, wallet, "", ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().String("wallet", "", "wallet address the session is bound to")
	sessionCmd.Flags().String("subject", "recoveryctl", "token subject")
	sessionCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	sessionCmd.MarkFlagRequired("wallet")
}
