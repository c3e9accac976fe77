package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func main() {
	file := flag.String("file", "", "path to a JSON catalog file")
	url := flag.String("url", "", "URL of a JSON catalog")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if (*file == "") == (*url == "") {
		log.Fatal("exactly one of -file or -url is required")
	}

	log.Info("Starting seed script...")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	log.Info("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB, false); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	var raw []byte
	if *file != "" {
		log.Infof("Reading catalog from: %s", *file)
		raw, err = os.ReadFile(*file)
	} else {
		log.Infof("Fetching catalog from: %s", *url)
		raw, err = fetchCatalog(*url)
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}

	var catalog []service.SeedCategory
	if err := json.Unmarshal(raw, &catalog); err != nil {
		log.WithError(err).Fatal("Failed to parse catalog JSON")
	}
	log.Infof("Loaded %d categories", len(catalog))

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	seeder := service.NewCatalogSeeder(
		repository.NewCategoryRepository(gormDB),
		repository.NewProductRepository(gormDB),
		cacheClient,
	)

	result, err := seeder.Seed(context.Background(), catalog)
	if err != nil {
		log.WithError(err).Fatal("Failed to seed catalog")
	}

	log.WithFields(logrus.Fields{
		"categories_created": result.CategoriesCreated,
		"products_created":   result.ProductsCreated,
		"products_updated":   result.ProductsUpdated,
		"skipped":            result.Skipped,
	}).Info("Seed completed successfully")
}

// fetchCatalog downloads a catalog document.
func fetchCatalog(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog URL returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
