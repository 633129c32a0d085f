package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/adminapi"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/storeapi"
	"github.com/maudia1/site/internal/webserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version  = "dev"
	confFile string
)

func loadApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(confFile)
	if err != nil {
		return nil, err
	}
	a := app.NewApplication(cfg)
	a.Init(cfg)
	return a, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Release()

	cfg := a.Config()
	srv := webserver.Init(a)
	adminapi.Init()
	storeapi.Init()
	webserver.RegisterPages(cfg.Web.PublicDir, cfg.GetUploadDir())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	a.StartBackgroundJobs(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		zap.L().Info("shutting down", zap.String("namespace", "main"))
		return nil
	})
	err = g.Wait()
	zap.L().Info("server stopped", zap.Error(err), zap.String("namespace", "main"))
	return err
}

func newInitDBCommand() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Release()
			a.InitDb()
			if demo {
				n, err := a.SeedDemoProducts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d demo products\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "insert demo products")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(*cobra.Command, []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Release()
			return a.MigrateDB(true)
		},
	}
}

func newResyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Push every product to the mirror",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Release()
			n, err := a.ResyncMirror(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d products\n", n)
			return err
		},
	}
}

func newExportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as csv or xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Release()
			products, err := a.Catalog().All(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return adminapi.WriteProducts(w, format, products)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "iwanted",
		Short:         "iWanted storefront server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVarP(&confFile, "config", "c", "", "config file (yaml)")
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the web server", RunE: serve},
		newInitDBCommand(),
		newMigrateCommand(),
		newExportCommand(),
		newResyncCommand(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
