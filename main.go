package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"meeting-rooms/booking"
	"meeting-rooms/console"
	"meeting-rooms/internal/config"
	"meeting-rooms/internal/lib/logger/slogpretty"
	"meeting-rooms/internal/lib/sl"
	"meeting-rooms/internal/mail"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "meeting-rooms",
		Short:        "Reserve meeting rooms from the command line",
		Long:         "Sign up, log in and manage your meeting room bookings from an interactive menu.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults to $CONFIG_PATH)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return cmd
}

func run(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info("starting meeting room booking", slog.String("env", cfg.Env), slog.String("data_dir", cfg.DataDir))
	log.Debug("debug messages are enabled")

	var mailer booking.Mailer
	if cfg.MailEnabled() {
		transport := mail.NewTransport(cfg.SMTP, cfg.Mail.Timeout, log)
		mailer = mail.NewSender(transport, cfg.Mail.RatePerMinute, cfg.Mail.Timeout, log)
	} else {
		log.Warn("smtp host not configured, emails will be logged")
		mailer = mail.NewLogSender(log)
	}

	manager, err := booking.NewManager(booking.Options{
		DatabasePath:       cfg.DatabasePath,
		DataDir:            cfg.DataDir,
		RoomCount:          cfg.Rooms.Count,
		KeepRoomOnConflict: cfg.Rooms.KeepOnConflict,
		OTPLength:          cfg.OTP.Length,
		OTPTTL:             cfg.OTP.TTL,
	}, booking.NewEmailNotifier(mailer), log)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		return err
	}
	defer manager.Close()

	var readPassword console.PasswordReader
	if in == os.Stdin && term.IsTerminal(int(syscall.Stdin)) {
		readPassword = func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return "", err
			}
			fmt.Fprintln(out) // Add newline after password input
			return strings.TrimSpace(string(bytePassword)), nil
		}
	}

	err = console.New(manager, in, out, readPassword).Run(ctx)
	log.Info("meeting room booking stopped")
	return err
}

// setupLogger follows the usual env switch. Outside local runs logs go to a file
// so they do not interleave with the menus.
func setupLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Env == config.EnvLocal {
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
		}
		return slog.New(opts.NewPrettyHandler(os.Stderr)), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Env == config.EnvDev {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return log, func() { f.Close() }, nil
}
