package main

import (
	"bufio"
	"fmt"
	"strings"

	"neurosim/internal/auth"

	"github.com/spf13/cobra"
)

const minPasswordLength = 8

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Long: `Create an account. Each account owns exactly one network.

The password is read from --password, or from the first line of stdin.

Examples:
  neurosim user add alice --password s3cret-pass
  echo s3cret-pass | neurosim user add alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, _ := cmd.Flags().GetString("password")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := auth.NewService(a.repo, nil, a.logger).Register(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			if jsonOut {
				return printJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().String("password", "", "Password (read from stdin when empty)")
	return cmd
}
