package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"shopkeep-go/internal/app"
	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
	"shopkeep-go/internal/ui"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// interactive reports whether stdout is a terminal that can host the
// status view.
func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// console receives log lines in addition to the log file; nil keeps them
// off the screen.
func newApp(ctx context.Context, operation string, console io.Writer) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation, app.WithConsole(console))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withStatusView creates the App for a command that talks to the remote
// store and runs fn under the status view. Log lines stay in the log file
// while the view is on screen.
func withStatusView(cmd *cobra.Command, operation string, fn func(ctx context.Context, a *app.App, host sk.Host) error) error {
	tty := interactive()
	var console io.Writer = os.Stderr
	if tty {
		console = nil
	}

	a, err := newApp(cmd.Context(), operation, console)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := ui.NewRunner(os.Stdout, tty)
	host := &app.TerminalHost{Out: runner, Browser: tty}
	return runner.Run(cmd.Context(), a.States(), func(ctx context.Context) error {
		return fn(ctx, a, host)
	})
}

// transfer runs a backup or restore, presenting the consent screen when
// the storage grant needs it.
func transfer(start func(*app.App, context.Context, sk.Host) (sk.Outcome, error)) func(context.Context, *app.App, sk.Host) error {
	return func(ctx context.Context, a *app.App, host sk.Host) error {
		out, err := start(a, ctx, host)
		if err != nil {
			return err
		}
		if out.Kind == sk.OutcomeNeedsUserAction {
			if out, err = a.Resume(ctx, host); err != nil {
				return err
			}
		}
		return outcomeError(out)
	}
}

func outcomeError(out sk.Outcome) error {
	switch out.Kind {
	case sk.OutcomeFailure:
		return fmt.Errorf("%s failed: %w", out.Operation, out.Err)
	case sk.OutcomeNeedsUserAction:
		return errors.New("storage permission is still required")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "sk",
	Short:        "Shop bookkeeping with cloud backup",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Set [oauth] client_id and [profile] firestore_project before signing in.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s/%s\n", cfg.Database.DataDir, cfg.Database.Name)
		fmt.Printf("Vault:     %s\n", cfg.Vault.Type)
		fmt.Printf("Profile:   %s\n", cfg.Profile.Type)
		fmt.Printf("Identity:  %s\n", cfg.Identity.Type)
		fmt.Printf("Redirect:  %s (consent timeout %s)\n", cfg.OAuth.RedirectAddr, cfg.OAuth.ConsentTimeout)
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and restore your latest backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res sk.LoginResult
		err := withStatusView(cmd, "login", func(ctx context.Context, a *app.App, host sk.Host) error {
			var err error
			if res, err = a.Login(ctx, host); err != nil {
				return err
			}
			if res.Status == sk.LoginNeedsUserAction {
				res, err = a.CompleteLogin(ctx, host)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		switch res.Status {
		case sk.LoginNotRegistered:
			fmt.Printf("%s has no shop yet. Run 'sk register' to create one.\n", res.Identity)
		case sk.LoginRegistered:
			if res.Restore.Kind == sk.OutcomeFailure {
				fmt.Printf("warning: restoring your backup failed: %v\n", res.Restore.Err)
			}
			fmt.Printf("Logged in as %s\n", res.Identity)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "logout", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

// register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register your shop",
	RunE: func(cmd *cobra.Command, args []string) error {
		var form sk.RegistrationForm
		form.Name, _ = cmd.Flags().GetString("name")
		form.ShopName, _ = cmd.Flags().GetString("shop")
		form.PhoneNumber, _ = cmd.Flags().GetString("phone")
		form.Address, _ = cmd.Flags().GetString("address")

		a, err := newApp(cmd.Context(), "register", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		host := &app.TerminalHost{Out: os.Stdout, Browser: interactive()}
		p, err := a.Register(cmd.Context(), host, form)
		if err != nil {
			return fmt.Errorf("registration: %w", err)
		}
		fmt.Printf("Registered %s for %s\n", p.ShopName, p.Email)
		fmt.Printf("Free period ends %s\n", formatMillis(p.NextPayDate))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your shop profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "profile", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Profile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Email:         %s\n", p.Email)
		fmt.Printf("Name:          %s\n", p.Name)
		fmt.Printf("Shop:          %s\n", p.ShopName)
		fmt.Printf("Phone:         %s\n", p.PhoneNumber)
		fmt.Printf("Address:       %s\n", p.Address)
		fmt.Printf("Registered:    %s\n", formatMillis(p.RegDate))
		fmt.Printf("Plan:          %s (%s)\n", p.UserType, p.Status)
		fmt.Printf("Next payment:  %s\n", formatMillis(p.NextPayDate))
		if p.DriveEmail != "" {
			fmt.Printf("Backups:       %s\n", p.DriveEmail)
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStatusView(cmd, "backup", transfer((*app.App).Backup))
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local database with your latest backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStatusView(cmd, "restore", transfer((*app.App).Restore))
	},
}

// names command
var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Manage names in the local database",
}

var namesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "names", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.AddName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Added #%d %s\n", n.ID, n.Name)
		return nil
	},
}

var namesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List names, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "names", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListNames(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No names yet.")
			return nil
		}
		for _, n := range names {
			fmt.Printf("#%d  %s  %s\n", n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Name)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history", os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %-10s  %s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Account,
				op.Detail,
			)
		}
		return nil
	},
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02")
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	namesCmd.AddCommand(namesAddCmd)
	namesCmd.AddCommand(namesListCmd)

	registerCmd.Flags().String("name", "", "Your name")
	registerCmd.Flags().String("shop", "", "Shop name")
	registerCmd.Flags().String("phone", "", "Phone number")
	registerCmd.Flags().String("address", "", "Shop address")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(historyCmd)
}
