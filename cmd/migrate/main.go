// migrate runs AutoMigrate for every ledger table. Use it as a separate job
// when the server starts with SKIP_MIGRATIONS=true.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/migrate [--dry-run]
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/sirupsen/logrus"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "If true, only print the tables that would be migrated")
	flag.Parse()

	logger := config.GetLogger()

	if *dryRun {
		fmt.Println("[dry-run] no changes will be written")
		for _, m := range models.Models() {
			fmt.Printf("  %T\n", m)
		}
		return
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	if err := models.MigrateTable(); err != nil {
		config.LogError(logger, "cmd/migrate", "main", "MigrateTable", nil, err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"field": "migrations", "tables": len(models.Models())}).Info("migrations applied")
	fmt.Println("migrations applied")
}
