package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-page/internal/api/http"
	"github.com/i474232898/weather-page/internal/config"
	"github.com/i474232898/weather-page/internal/fetchstate"
	"github.com/i474232898/weather-page/internal/scheduler"
	"github.com/i474232898/weather-page/internal/store"
	"github.com/i474232898/weather-page/internal/weather"
)

var (
	port     string
	basePath string
)

var rootCmd = &cobra.Command{
	Use:   "weather-page",
	Short: "Serve the current weather for one fixed location",
	Long: `weather-page serves a small site showing the current weather for a
fixed location, fetched from OpenWeatherMap. The whole site, static assets
included, can be served under a base path (BASE_PATH, or /wx by default
when APP_ENV=production).`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	rootCmd.Flags().StringVarP(&basePath, "base-path", "b", "", "URL prefix for every route and asset (overrides BASE_PATH)")
}

func run(cmd *cobra.Command, args []string) error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("base-path") {
		cfg.BasePath = basePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := weather.NewClient(cfg, nil)
	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// The page's fetch state lives as long as the server.
	page := fetchstate.Mount[weather.Payload]("/weather", client, fetchstate.Options[weather.Payload]{
		Name:     "weather page",
		Notifier: fetchstate.LogNotifier{Prefix: "openweather: "},
		OnChange: func(st fetchstate.State[weather.Payload]) {
			if st.Status() == fetchstate.StatusSuccess {
				history.Save(weather.NewReading(*st.Data, cfg.Units, st.UpdatedAt))
			}
		},
	})
	defer page.Unmount()

	sched := scheduler.New(page, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app, err := httpapi.NewApp(httpapi.Deps{Config: cfg, Weather: page, History: history})
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	log.Printf("INFO: fetching %s every %s", client.Endpoint("/weather"), cfg.RefreshInterval)
	log.Printf("INFO: serving on http://localhost:%s%s/", cfg.Port, cfg.BasePath)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
