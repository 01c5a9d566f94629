// Command devtoken mints a bearer token for local testing against a
// development server. The signing secret comes from JWT_SECRET (or .env).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
)

func main() {
	userID := flag.String("user", "", "Required: principal id (directory user_id)")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	cfg := config.Load()
	if strings.TrimSpace(*userID) == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	if cfg.Environment == "production" {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens with APP_ENV=production")
		os.Exit(1)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, cfg.JWTIssuer, strings.TrimSpace(*userID), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
