package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/consolehq/admin-front/internal"
	"github.com/consolehq/admin-front/internal/config"
	"github.com/consolehq/admin-front/internal/log"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"console": map[string]any{
			"addr":                 ":8080",
			"baseURL":              "https://console.yourcompany.com",
			"name":                 "Admin Console",
			"sessionMaxAge":        "24h",
			"failureRedirectDelay": "3s",
			"storage":              "memory",
			"stateSigningKey":      map[string]string{"$env": "STATE_SIGNING_KEY"},
		},
		"backend": map[string]any{
			"baseURL": "https://api.yourcompany.com",
			"timeout": "30s",
		},
		"idp": map[string]any{
			"authorizationEndpoint": "https://auth.yourcompany.com/oauth2/authorize",
			"clientId":              "your-client-id",
			"redirectUri":           "https://console.yourcompany.com/callback",
			"scopes":                []string{"openid", "email", "profile"},
			"defaultFlow":           "code",
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	fmt.Printf("Validating: %s\n", path)

	if _, err := config.Load(path); err != nil {
		fmt.Printf("\nResult: FAIL\n  - %v\n", err)
		return err
	}

	fmt.Println("Result: PASS")
	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if *validate {
		if *conf == "" {
			fmt.Fprintf(os.Stderr, "Error: -config flag is required for validation\n")
			os.Exit(1)
		}
		if err := validateConfig(*conf); err != nil {
			os.Exit(1)
		}
		return
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting admin-front", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	ctx := context.Background()
	adminFront, err := internal.NewAdminFront(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create admin console: %v", err)
		os.Exit(1)
	}

	err = adminFront.Run()
	if err != nil {
		log.LogError("Failed to start server: %v", err)
		os.Exit(1)
	}
}
