package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application"
	"github.com/soporteops/soporteops/console/internal/infrastructure/config"
	"github.com/soporteops/soporteops/console/internal/infrastructure/logger"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
)

const (
	appName    = "soporteops-console"
	appVersion = "0.3.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "SoporteOps — consola de soporte multi-instancia",
		Long:  "Servidor de la consola SoporteOps: API HTTP, WebSocket en tiempo real y webhooks de Chatwoot",
		RunE:  runServe,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Iniciar el servidor de la consola (HTTP + WebSocket + webhooks)",
		RunE:  runServe,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Diagnóstico de entorno y configuración",
		RunE:  runCheck,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Mostrar versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Server Mode ───

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, logLevel, err := logger.NewLeveledLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting SoporteOps console",
		zap.String("name", appName),
		zap.String("version", appVersion),
		zap.String("remote_mode", cfg.Remote.Mode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.NewApp(cfg, log, logLevel)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal("Failed to start application", zap.Error(err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
	return nil
}

// ─── Check ───

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Printf("◇ %s check v%s\n\n", appName, appVersion)

	checks := []struct {
		name  string
		check func() (string, bool)
	}{
		{"Configuración", checkConfig},
		{"Catálogo de pipelines", checkCatalog},
		{"Base de datos", checkDatabase},
	}

	allOK := true
	for _, c := range checks {
		val, ok := c.check()
		icon := "\033[92m✓\033[0m"
		if !ok {
			icon = "\033[91m✗\033[0m"
			allOK = false
		}
		fmt.Printf("  %s %s: %s\n", icon, c.name, val)
	}

	fmt.Println()
	if allOK {
		fmt.Println("Todas las comprobaciones pasaron ✓")
	} else {
		fmt.Println("Hay problemas, revisa las marcas de arriba")
	}
	return nil
}

func checkConfig() (string, bool) {
	if _, err := config.Load(); err != nil {
		return err.Error(), false
	}
	if path := config.LocalConfigPath(); path != "" {
		return path, true
	}
	return "valores por defecto (sin config.yaml local)", true
}

func checkCatalog() (string, bool) {
	cfg, err := config.Load()
	if err != nil {
		return err.Error(), false
	}
	if cfg.Pipeline.CatalogPath == "" {
		return "catálogo integrado", true
	}
	if _, err := remote.LoadCatalog(cfg.Pipeline.CatalogPath); err != nil {
		return err.Error(), false
	}
	return cfg.Pipeline.CatalogPath, true
}

func checkDatabase() (string, bool) {
	cfg, err := config.Load()
	if err != nil {
		return err.Error(), false
	}
	switch cfg.Database.Type {
	case "memory":
		return "en memoria (sin persistencia)", true
	case "sqlite":
		dir := "."
		if _, err := os.Stat(dir); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("sqlite %s", cfg.Database.DSN), true
	case "postgres":
		return "postgres (se valida al arrancar)", true
	default:
		return fmt.Sprintf("tipo desconocido %q", cfg.Database.Type), false
	}
}
