// Command catalog-import loads a YAML product seed file into the catalog.
//
//	catalog-import --file seed/mattresses.yaml
//	catalog-import --file seed/pillows.yaml --dry-run
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"storefront/config"
	"storefront/internal/catalog"
	"storefront/internal/docstore"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	file := pflag.StringP("file", "f", "", "YAML seed file to import")
	category := pflag.StringP("category", "c", "", "expected category; the import aborts if the file declares another")
	dryRun := pflag.Bool("dry-run", false, "validate and print the products without writing them")
	mongoURI := pflag.String("mongo-uri", cfg.Mongo.URI, "MongoDB connection string")
	database := pflag.String("database", cfg.Mongo.Database, "MongoDB database")
	pflag.Parse()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.Named("catalog-import")

	if *file == "" {
		pflag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("Failed to open seed file", zap.Error(err))
	}
	defer f.Close()

	cat, products, err := catalog.LoadSeed(f)
	if err != nil {
		logger.Fatal("Invalid seed file", zap.String("file", *file), zap.Error(err))
	}
	if *category != "" {
		want, ok := models.ParseCategory(*category)
		if !ok || want != cat {
			logger.Fatal("Seed category mismatch", zap.String("flag", *category), zap.String("file", string(cat)))
		}
	}

	if *dryRun {
		for _, p := range products {
			fmt.Printf("%-60s %s\n", p.SKU, p.Title)
		}
		logger.Info("Dry run complete", zap.String("category", string(cat)), zap.Int("products", len(products)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	docs, err := docstore.Connect(ctx, *mongoURI, *database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer docs.Close(context.Background())

	var created, updated int
	for _, p := range products {
		isNew, err := docs.UpsertProductBySKU(ctx, cat, catalog.ToRaw(p))
		if err != nil {
			logger.Fatal("Failed to import product", zap.String("sku", p.SKU), zap.Error(err))
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	logger.Info("Catalog imported",
		zap.String("category", string(cat)),
		zap.Int("created", created),
		zap.Int("updated", updated))
}
