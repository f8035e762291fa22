package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"tilestock/internal/core"
	"tilestock/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// admin runs the reconciliation operations that should not be a click away:
// duplicate-product merges, consistency audits, and catalog rebuilds.
func main() {
	_ = godotenv.Load()

	log := logrus.New()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	ledger := core.NewLedger(pool, log)
	catalog := core.NewCatalog(pool, log)
	products := core.NewProductService(pool)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "merge":
		if len(os.Args) != 4 {
			log.Fatal("usage: admin merge <keep-code> <drop-code>")
		}
		keep, err := products.GetByCode(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("keep product: %v", err)
		}
		drop, err := products.GetByCode(ctx, os.Args[3])
		if err != nil {
			log.Fatalf("drop product: %v", err)
		}
		report, err := ledger.Merge(ctx, keep.ID, drop.ID)
		if err != nil {
			log.Fatalf("merge failed: %v", err)
		}
		if err := catalog.Rebuild(ctx); err != nil {
			log.Warnf("catalog rebuild after merge failed: %v", err)
		}
		printJSON(report)

	case "rebuild":
		if err := catalog.Rebuild(ctx); err != nil {
			log.Fatalf("rebuild failed: %v", err)
		}
		fmt.Println("catalog rebuilt")

	case "check":
		if len(os.Args) != 3 {
			log.Fatal("usage: admin check <product-code>")
		}
		product, err := products.GetByCode(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("product: %v", err)
		}
		if err := ledger.CheckConsistency(ctx, product.ID); err != nil {
			log.Fatalf("inconsistent: %v", err)
		}
		fmt.Printf("%s: ledger and transaction log agree\n", product.Code)

	case "stock":
		if len(os.Args) != 3 {
			log.Fatal("usage: admin stock <product-code>")
		}
		levels, err := ledger.StockLevels(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("stock levels: %v", err)
		}
		printJSON(levels)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command>

commands:
  merge <keep-code> <drop-code>   fold one product into another (irreversible)
  rebuild                         rebuild the catalog projection
  check <product-code>            audit ledger vs transaction log
  stock <product-code>            print live stock levels`)
	os.Exit(2)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
