package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Kubolab-io/takkapp-v1-sub000/app"
	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/di"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
	"github.com/Kubolab-io/takkapp-v1-sub000/store/migrations"
)

var flags config.CliFlags

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp wires the application, runs fn and releases the store.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := di.InitApp(ctx, &flags)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	defer cleanup()
	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "takk",
	Short:         "Weekly mutual matching service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and socket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var epochAt string

var epochCmd = &cobra.Command{
	Use:   "epoch",
	Short: "Print the epoch id and end for now or --at",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.NewConfig(&flags)
		if err != nil {
			return err
		}
		at := time.Now()
		if epochAt != "" {
			if at, err = time.Parse(time.RFC3339, epochAt); err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
		}
		epoch := services.NewEpochCalculator(conf.Location()).Epoch(at)
		return printJSON(map[string]interface{}{
			"epochId":  epoch.ID,
			"epochEnd": epoch.End,
		})
	},
}

var userID string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Get or generate the current epoch's matches for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			gen, err := a.Matching.GetOrGenerate(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(gen)
		})
	},
}

var reconcileEpoch string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile --user's view for the current epoch or --epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			epochID := reconcileEpoch
			if epochID == "" {
				epochID = a.Matching.CurrentEpochID()
			}
			result, err := a.Matching.ReconcileEpoch(ctx, userID, epochID)
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run a matching session for --user until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			session := a.Matching.StartSession(ctx, userID, func(update services.SessionUpdate) {
				if err := printJSON(update); err != nil {
					a.Log.Error().Err(err).Msg("❌ Failed to print update")
				}
			})
			<-ctx.Done()
			session.Stop()
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQLite schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.NewConfig(&flags)
		if err != nil {
			return err
		}
		if conf.Store.Type != "sqlite" {
			return errors.New("migrate only applies to the sqlite store")
		}
		s, err := store.NewSQLiteStore(conf.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()

		version, dirty, err := migrations.Version(s.DB())
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d (dirty: %t)\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to config yaml")
	rootCmd.PersistentFlags().BoolVar(&flags.DebugMode, "debug", false, "enable debug logging")

	epochCmd.Flags().StringVar(&epochAt, "at", "", "RFC3339 instant (default now)")

	for _, cmd := range []*cobra.Command{generateCmd, reconcileCmd, sessionCmd} {
		cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
		_ = cmd.MarkFlagRequired("user")
	}
	reconcileCmd.Flags().StringVar(&reconcileEpoch, "epoch", "", "epoch id (default current)")

	rootCmd.AddCommand(serveCmd, epochCmd, generateCmd, reconcileCmd, sessionCmd, migrateCmd)
}
