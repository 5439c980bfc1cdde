package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"asset-dashboard/internal/collection"
	"asset-dashboard/internal/config"
	"asset-dashboard/internal/store"
	"asset-dashboard/pkg/exporter"

	"github.com/joho/godotenv"
)

const usage = "Usage: export_xlsx --out=assets.xlsx [--layout=configs/export/assets.yaml] [--search=...] [--department=...] [--token=...]"

func main() {
	_ = godotenv.Load()

	var outPath, layoutPath, search, department, token string
	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--out="):
			outPath = strings.TrimPrefix(arg, "--out=")
		case strings.HasPrefix(arg, "--layout="):
			layoutPath = strings.TrimPrefix(arg, "--layout=")
		case strings.HasPrefix(arg, "--search="):
			search = strings.TrimPrefix(arg, "--search=")
		case strings.HasPrefix(arg, "--department="):
			department = strings.TrimPrefix(arg, "--department=")
		case strings.HasPrefix(arg, "--token="):
			token = strings.TrimPrefix(arg, "--token=")
		default:
			fmt.Println("Unknown argument:", arg)
			fmt.Println(usage)
			os.Exit(1)
		}
	}
	if outPath == "" {
		fmt.Println("Error: out is required")
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	var layout exporter.Layout
	if layoutPath != "" {
		if layout, err = exporter.LoadLayout(layoutPath); err != nil {
			log.Fatalf("Invalid layout: %v", err)
		}
	}

	ctx := context.Background()
	src, closeFn, err := openStore(ctx, cfg, token)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeFn()

	assets, err := src.FetchAll(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch assets: %v", err)
	}
	assets = collection.Filter(assets, search)
	if department != "" {
		assets = collection.GroupByDepartment(assets).Lookup(department)
	}

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", outPath, err)
	}
	summary, err := exporter.Export(out, assets, exporter.Options{Layout: layout})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Printf("Wrote %d assets (%d columns) to sheet %q in %s\n", summary.Rows, summary.Columns, summary.Sheet, outPath)
}

// openStore reads from Postgres when DB_DSN is configured for it, otherwise
// from the hosted REST API, as the given user when a token is passed.
func openStore(ctx context.Context, cfg *config.Config, token string) (store.AssetStore, func(), error) {
	if cfg.StoreBackend == "postgres" {
		db, err := store.OpenPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(db), func() { db.Close() }, nil
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		return nil, nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for the rest store")
	}
	rest := store.NewREST(cfg.SupabaseURL, cfg.SupabaseAnonKey, &http.Client{Timeout: cfg.HTTPTimeout})
	if token != "" {
		rest = rest.WithAccessToken(token)
	}
	return rest, func() {}, nil
}
