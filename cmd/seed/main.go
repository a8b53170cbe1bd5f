// Command seed creates the bootstrap admin account and imports portfolio
// content fixtures into the document store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/database"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/internal/document/service"
	"github.com/portfolio-site/portfolio-api/internal/users"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

func main() {
	fixtures := flag.String("fixtures", "", "JSON file mapping collection names to arrays of documents")
	onConflict := flag.String("on-conflict", "title", "comma separated fields identifying an existing document")
	seedAdmin := flag.Bool("admin", true, "create or refresh the bootstrap admin from AUTH_BOOTSTRAP_ADMIN_*")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.MaxPoolSize)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB.Database)

	if *seedAdmin {
		if !cfg.Auth.BootstrapConfigured() {
			logger.Warnf("AUTH_BOOTSTRAP_ADMIN_EMAIL/PASSWORD not set; skipping admin seed")
		} else {
			repo := users.NewMongoUserRepository(db.Collection(users.CollectionName))
			if err := repo.EnsureIndexes(ctx); err != nil {
				logger.Warnf("users index: %v", err)
			}
			created, err := users.NewService(repo).SeedAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
			if err != nil {
				logger.Fatalf("seed admin: %v", err)
			}
			logger.Infow("admin seeded", "email", cfg.Auth.BootstrapAdminEmail, "created", created)
		}
	}

	if *fixtures == "" {
		return
	}
	f, err := os.Open(*fixtures)
	if err != nil {
		logger.Fatalf("open fixtures: %v", err)
	}
	defer f.Close()

	counts, err := importFixtures(ctx, service.New(repository.NewMongoRepo(db)), f, strings.Split(*onConflict, ","))
	if err != nil {
		logger.Fatalf("import fixtures: %v", err)
	}
	for _, name := range sortedKeys(counts) {
		logger.Infow("collection imported", "collection", name, "documents", counts[name])
	}
}

// importFixtures upserts every document of every collection in r, so running
// it twice leaves one copy of each document.
func importFixtures(ctx context.Context, svc *service.Service, r io.Reader, conflictKeys []string) (map[string]int, error) {
	var data map[string][]document.Document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	counts := make(map[string]int, len(data))
	for _, name := range sortedKeys(data) {
		for i, d := range data[name] {
			if _, err := svc.Upsert(ctx, name, d, conflictKeys); err != nil {
				return counts, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			counts[name]++
		}
	}
	return counts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
