package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tilestock/internal/db"

	"github.com/joho/godotenv"
)

// migrate applies every migrations/*.sql file in filename order. The files
// are written to be idempotent (CREATE TABLE IF NOT EXISTS), so re-running
// the full set is safe.
func main() {
	_ = godotenv.Load()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		fmt.Printf("no migration files found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		fmt.Printf("failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("failed to read %s: %v\n", file, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			fmt.Printf("migration %s failed: %v\n", file, err)
			os.Exit(1)
		}
		fmt.Printf("applied %s\n", file)
	}
}
