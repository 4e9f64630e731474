package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/spackmon-backend/internal/app"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/modules/specgraph"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

var (
	spackVersion string
	userEmail    string
	tokenScope   string

	rootCmd = &cobra.Command{
		Use:           "spackmon",
		Short:         "Monitor server for spack builds",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the http api and the background sweeps until interrupted",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables and indexes, then exit",
		RunE:  runMigrate,
	}

	importConfigCmd = &cobra.Command{
		Use:   "import-config [file.json]",
		Short: "Import a concretized spec document from disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportConfig,
	}

	addUserCmd = &cobra.Command{
		Use:   "add-user [username]",
		Short: "Create a user and print its api token",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddUser,
	}

	getTokenCmd = &cobra.Command{
		Use:   "get-token [username]",
		Short: "Print a fresh bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runGetToken,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print build status events published on redis",
		RunE:  runWatch,
	}
)

func init() {
	importConfigCmd.Flags().StringVar(&spackVersion, "spack-version", "", "spack version the document was concretized with")
	_ = importConfigCmd.MarkFlagRequired("spack-version")
	addUserCmd.Flags().StringVar(&userEmail, "email", "", "contact email for the user")
	getTokenCmd.Flags().StringVar(&tokenScope, "scope", services.DefaultTokenScope, "token scope")

	rootCmd.AddCommand(serveCmd, migrateCmd, importConfigCmd, addUserCmd, getTokenCmd, watchCmd)
}

func setup() (*logger.Logger, app.Config, error) {
	cfg := app.DefaultConfig()
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = cfg.LogMode
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, cfg, fmt.Errorf("init logger: %w", err)
	}
	cfg, err = app.LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, cfg, fmt.Errorf("load config: %w", err)
	}
	return log, cfg, nil
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	log, cfg, err := setup()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(a)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	return withApp(ctx, func(a *app.App) error {
		return a.Run(ctx)
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	log, cfg, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	dbService, err := app.OpenDB(log, cfg)
	if err != nil {
		return err
	}
	defer dbService.Close()
	if err := dbService.AutoMigrateAll(); err != nil {
		return err
	}
	log.Info("Migrations complete", "driver", dbService.Driver())
	return nil
}

func runImportConfig(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := specgraph.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return withApp(cmd.Context(), func(a *app.App) error {
		res, err := a.Services.SpecImport.Import(cmd.Context(), doc, spackVersion)
		if err != nil {
			return err
		}
		verb := "exists"
		if res.Created {
			verb = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%d dependencies)\n", verb, res.Spec.Name, res.Spec.FullHash, len(res.Spec.Dependencies))
		return nil
	})
}

func runAddUser(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		u, token, err := a.Services.Auth.CreateUser(cmd.Context(), args[0], userEmail)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user: %s\ntoken: %s\n", u.Username, token)
		return nil
	})
}

func runGetToken(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		u, err := a.Repos.User.GetByUsername(dbctx.Context{Ctx: cmd.Context()}, args[0])
		if err != nil {
			return fmt.Errorf("user %s: %w", args[0], err)
		}
		tok, err := a.Services.Auth.IssueToken(cmd.Context(), u, tokenScope)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
		return nil
	})
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	return withApp(ctx, func(a *app.App) error {
		if a.Clients.BuildBus == nil {
			return errors.New("watch needs redis_addr to be configured")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		if err := a.Clients.BuildBus.Subscribe(ctx, func(ev types.BuildStatusEvent) {
			_ = enc.Encode(ev)
		}); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
}
