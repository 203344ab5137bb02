package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sundey-crm/pkg/config"
	"sundey-crm/pkg/database/postgresql"
	applogger "sundey-crm/pkg/logger"
	"sundey-crm/pkg/service"
	"sundey-crm/seeders"
)

func main() {
	companyID := flag.String("company", "", "company id to seed")
	runCatalog := flag.Bool("catalog", false, "seed the default service catalog")
	migrate := flag.Bool("migrate", false, "apply migrations before seeding")
	tokenFor := flag.String("token", "", "print a development access token for this user id")
	flag.Parse()

	if *companyID == "" || (!*runCatalog && *tokenFor == "" && !*migrate) {
		fmt.Fprintln(os.Stderr, "usage: seed -company <id> [-migrate] [-catalog] [-token <userId>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()
	ctx := context.Background()

	if *migrate || *runCatalog {
		db, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		if *migrate {
			if err := postgresql.Migrate(ctx, db); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		if *runCatalog {
			if _, err := seeders.SeedServiceCatalog(ctx, db, *companyID, logger); err != nil {
				logger.Fatal("failed to seed service catalog", zap.Error(err))
			}
		}
	}

	if *tokenFor != "" {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)
		token, err := jwtSvc.GenerateAccessToken(*tokenFor, *companyID, "admin")
		if err != nil {
			logger.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Println(token)
	}
}
