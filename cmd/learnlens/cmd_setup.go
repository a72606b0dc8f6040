package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/learnlens/internal/config"
)

// cmdInit creates ~/.learnlens with a default configuration and optional
// credentials
func cmdInit() error {
	fmt.Println("learnlens - First-Time Setup")
	fmt.Println("============================")
	fmt.Println()

	fmt.Print("Creating ~/.learnlens directory structure... ")
	dir, err := config.EnsureLearnlensDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Println("Optional credentials (press Enter to skip)")
	fmt.Println("------------------------------------------")
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Printf("%s: ", label)
		v, _ := reader.ReadString('\n')
		return strings.TrimSpace(v)
	}

	secrets := config.SecretsConfig{
		BackendPublicKey: prompt("Hosted backend public key"),
		DatabaseURL:      prompt("PostgreSQL URL"),
		RabbitMQURL:      prompt("RabbitMQ URL"),
	}
	if secrets != (config.SecretsConfig{}) {
		if err := config.SaveSecrets(secrets); err != nil {
			fmt.Printf("  ⚠ Failed to save: %v\n", err)
		} else {
			fmt.Println("  ✓ Saved to secrets.yaml")
		}
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Set storage.seed_file in config.yaml to load a course catalog")
	fmt.Println("  2. learnlens start     # Start the daemon")
	fmt.Println("  3. learnlens courses   # Browse the catalog")
	fmt.Println()
	fmt.Println("For assistant integration, configure MCP with 'learnlens mcp'.")

	return nil
}

// cmdConfig prints the effective configuration without secrets
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg)
	dir, _ := config.LearnlensDir()

	check := func(set bool) string {
		if set {
			return "✓"
		}
		return "✗"
	}

	fmt.Println("learnlens Configuration")

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)

	fmt.Println("\nStorage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.StorageLocal, config.StorageSQLite:
		fmt.Printf("  path: %s\n", cfg.DataPath(dir))
	case config.StoragePostgres:
		fmt.Printf("  database_url: %s\n", check(cfg.Storage.DatabaseURL != ""))
	case config.StorageBackend:
		fmt.Printf("  base_url: %s\n", cfg.Backend.BaseURL)
		fmt.Printf("  project_id: %s\n", cfg.Backend.ProjectID)
		fmt.Printf("  tables: %s, %s\n", cfg.Backend.CourseTable, cfg.Backend.ProgressTable)
		fmt.Printf("  public_key: %s\n", check(cfg.Backend.PublicKey != ""))
	}
	if cfg.Storage.SeedFile != "" {
		fmt.Printf("  seed_file: %s\n", cfg.Storage.SeedFile)
	}

	fmt.Println("\nQueue:")
	fmt.Printf("  enabled: %t workers=%d url=%s\n", cfg.Queue.Enabled, cfg.Queue.Workers, check(cfg.Queue.URL != ""))

	fmt.Println("\nAnalytics:")
	fmt.Printf("  default_user: %s\n", cfg.Analytics.DefaultUser)
	fmt.Printf("  weak_threshold: %.0f%%\n", cfg.Analytics.WeakThreshold)
	fmt.Printf("  recent_limit: %d\n", cfg.Analytics.RecentLimit)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n⚠ %v\n", err)
	}

	fmt.Printf("\nConfig path: %s\n", filepath.Join(dir, "config.yaml"))
	return nil
}
