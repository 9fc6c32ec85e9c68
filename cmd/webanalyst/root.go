package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/api"
	"github.com/JakeFAU/webanalyst/internal/app"
	"github.com/JakeFAU/webanalyst/internal/config"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use. Tests replace it through newApp.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetRunner() api.Runner
}

type services struct {
	*app.App
}

func (s services) GetRunner() api.Runner {
	return s.GetPipeline()
}

// newApp is the application factory.
var newApp = func(cfg config.Config) (App, error) {
	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	return services{a}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "webanalyst",
		Short: "Analyze a web page with a hosted language model.",
		Long: `webanalyst fetches a single web page, extracts its visible text, and asks a
hosted language model to analyze it according to your instruction. Results can
be exported as a one-row CSV file.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars use the WEBANALYST_ prefix")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newModelsCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
