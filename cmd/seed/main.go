package main

import (
	"context"
	"fmt"
	"os"

	"splay/cmd/config"
	migration "splay/cmd/database/migrate"
	"splay/internal/utils"
	"splay/internal/utils/logger"
	"splay/pkg/product"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"go.uber.org/zap"
)

func main() {
	fs := ff.NewFlagSet("seed")
	force := fs.BoolLong("force", "replace the existing catalog")

	if err := ff.Parse(fs, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := utils.GetAppConfig()
	log := logger.NewForEnvironment(cfg.Environment, cfg.LogLevel)
	defer log.Sync()

	db, err := config.ConnectDB(log)
	if err != nil {
		log.Fatal("connecting database", zap.Error(err))
	}
	if err := migration.Migrate(db); err != nil {
		log.Fatal("migrating", zap.Error(err))
	}

	n, err := product.NewProductService(product.NewProductRepository(db), log).Seed(context.Background(), *force)
	if err != nil {
		log.Fatal("seeding products", zap.Error(err))
	}
	if n == 0 {
		log.Info("catalog already seeded, use --force to replace it")
		return
	}
	log.Info("seeded products", zap.Int("count", n))
}
