package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobreview-engine/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the IMAP password in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set-imap",
	Short: "Store the IMAP password (read from stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, "IMAP password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return fmt.Errorf("empty password")
		}
		acct := secrets.IMAPKeyringAccount(a.cfg)
		if err := secrets.SetIMAPPassword(acct, pw); err != nil {
			return err
		}
		fmt.Println("stored for", acct)
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete-imap",
	Short: "Remove the stored IMAP password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return secrets.DeleteIMAPPassword(secrets.IMAPKeyringAccount(a.cfg))
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}
