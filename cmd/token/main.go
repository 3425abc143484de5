// Command token issues access tokens for the admin and payment APIs.
//
//	token -subject ops@example.com -roles operator
//	token -subject payments -roles service -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		subject string
		roles   string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Token subject (required)")
	flag.StringVar(&roles, "roles", auth.RoleOperator, "Comma separated roles: admin, operator, service")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: jwt.access_token_expiration)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	parsed, err := parseRoles(roles)
	if err != nil {
		log.Fatal("Invalid roles", zap.Error(err))
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWT).GenerateToken(subject, parsed, ttl)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}
	log.Info("Token issued",
		zap.String("subject", subject),
		zap.Strings("roles", parsed),
		zap.Time("expires_at", expiresAt),
	)
	fmt.Println(token)
}

func parseRoles(raw string) ([]string, error) {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(strings.ToLower(r))
		switch r {
		case "":
			continue
		case auth.RoleAdmin, auth.RoleOperator, auth.RoleService:
			out = append(out, r)
		default:
			return nil, fmt.Errorf("unknown role %q", r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	return out, nil
}
