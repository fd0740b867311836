// Command admin-token prints a bearer token for the admin endpoints, signed
// with the configured admin_jwt_secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/sentiment/internal/adapters/http/api"
	"github.com/okian/sentiment/internal/config"
)

func main() {
	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	token, err := mint(context.Background(), *subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "admin-token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(ctx context.Context, subject string, ttl time.Duration, now time.Time) (string, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return "", err
	}
	if cfg.AdminJWTSecret == "" {
		return "", fmt.Errorf("admin_jwt_secret is not set")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return api.NewAdminToken([]byte(cfg.AdminJWTSecret), subject, ttl, now)
}
