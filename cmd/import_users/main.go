package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"meeting-rooms/booking"
	"meeting-rooms/internal/config"
	"meeting-rooms/internal/mail"
)

// legacyUser is one entry of the users.json file written by older versions.
type legacyUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Salt     string `json:"salt"`
	Email    string `json:"email"`
}

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "import_users [users.json]",
		Short:        "Import accounts from a legacy users.json file",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "users.json"
			if len(args) == 1 {
				source = args[0]
			}
			return run(configPath, source, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults to $CONFIG_PATH)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, source string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	var legacy []legacyUser
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}

	manager, err := openManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Fprintf(out, "Importing %d users from %s into %s...\n", len(legacy), source, cfg.DatabasePath)

	successCount, skipCount, errorCount := 0, 0, 0
	for _, lu := range legacy {
		fmt.Fprintf(out, "Importing: %s... ", lu.Username)

		err := manager.ImportUser(booking.User{
			Username:     strings.TrimSpace(lu.Username),
			PasswordHash: lu.Password,
			Salt:         lu.Salt,
			Email:        strings.TrimSpace(lu.Email),
		})
		switch {
		case err == nil:
			fmt.Fprintln(out, "SUCCESS")
			successCount++
		case errors.Is(err, booking.ErrUserExists):
			fmt.Fprintln(out, "SKIPPED - already exists")
			skipCount++
		default:
			fmt.Fprintf(out, "ERROR - %v\n", err)
			errorCount++
		}
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d users\n", successCount)
	fmt.Fprintf(out, "Skipped: %d\n", skipCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Fprintln(out, "\nAccounts:")
		users, err := manager.GetAllUsers()
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		fmt.Fprintf(out, "%-30s %-40s\n", "Username", "Email")
		fmt.Fprintln(out, strings.Repeat("-", 71))
		for _, u := range users {
			fmt.Fprintf(out, "%-30s %-40s\n", truncateString(u.Username, 30), truncateString(u.Email, 40))
		}
	}
	return nil
}

// openManager opens the accounts database. Mail is only ever logged.
func openManager(cfg *config.Config, log *slog.Logger) (*booking.Manager, error) {
	manager, err := booking.NewManager(booking.Options{
		DatabasePath: cfg.DatabasePath,
		DataDir:      cfg.DataDir,
	}, booking.NewEmailNotifier(mail.NewLogSender(log)), log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return manager, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
