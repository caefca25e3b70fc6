package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	internalauth "imgvault/internal/auth"
	"imgvault/internal/config"
	"imgvault/internal/metrics"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts in the local database",
	}
	cmd.AddCommand(newUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserDeleteCmd(cfg, jsonOutput))
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create one user account",
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}
			password, err := readPassword(passwordStdin, "Password: ")
			if err != nil {
				return err
			}
			account, err := internalauth.NewAccount(email, username, password)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			created, err := st.CreateUser(cmd.Context(), account.Email, account.Username, account.PasswordHash, time.Now().UTC())
			if err != nil {
				if errors.Is(err, store.ErrConflict) {
					return fmt.Errorf("user %s already exists", email)
				}
				return err
			}

			if *jsonOutput {
				return writeJSON(created.Model())
			}
			return writePlain("created user %s (%s)\n", created.Email, created.ID)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name (defaults to the email local part)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin instead of prompting")
	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]models.User, 0, len(users))
			for _, user := range users {
				out = append(out, user.Model())
			}

			if *jsonOutput {
				return writeJSON(map[string]any{"count": len(out), "users": out})
			}
			if len(out) == 0 {
				return writePlain("no users\n")
			}
			if err := writePlain("EMAIL\tUSERNAME\tCREATED\tID\n"); err != nil {
				return err
			}
			for _, user := range out {
				if err := writePlain("%s\t%s\t%s\t%s\n", user.Email, user.Username, formatTime(user.CreatedAt), user.ID); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newUserDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <email>",
		Aliases: []string{"rm"},
		Short:   "Delete a user with all of their images and albums",
		Args:    requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}

			backend, err := openLocalBackend(cmd.Context(), cfg, slog.Default(), metrics.Nop{})
			if err != nil {
				return err
			}
			defer backend.Close()

			user, err := backend.store.GetUserByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s not found", email)
			}

			result, err := backend.media.DeleteUser(cmd.Context(), user.ID)
			if *jsonOutput {
				if writeErr := writeJSON(result); writeErr != nil {
					return writeErr
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("delete user %s: %d of %d images failed: %w", email, result.Failed, result.Requested, err)
			}
			return writePlain("deleted user %s (%d images)\n", email, result.Deleted)
		},
	}
}
