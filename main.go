package main

import (
	"context"
	"fmt"
	"os"

	auction "auction-ledger/internal/auctionService"
	"auction-ledger/internal/collab"
	"auction-ledger/internal/coordinator"
	"auction-ledger/internal/layout"
	"auction-ledger/internal/server"
	"auction-ledger/internal/store"
	"auction-ledger/utils"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local runs; real deployments set the variables.
	_ = godotenv.Load()

	ledgerStore, err := buildStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open ledger store: %v\n", err)
		os.Exit(1)
	}

	assets := collab.NewMemoryAssetRegistry()
	funds := collab.NewMemoryFunds()
	clock := collab.SystemClock{}
	access := collab.NewStaticAccessControl(upgradeAdmins()...)

	serviceV1 := auction.NewAuctionService(ledgerStore, assets, funds, clock)

	coord := coordinator.New(access)
	identity, err := coord.DeployInitial(ledgerStore, serviceV1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to deploy initial logic: %v\n", err)
		os.Exit(1)
	}

	logics := func(version string) (auction.Logic, error) {
		switch version {
		case "v1":
			return serviceV1, nil
		case "v2":
			return auction.NewAuctionServiceV2(serviceV1), nil
		default:
			return nil, fmt.Errorf("no logic registered for version %q", version)
		}
	}

	router := server.SetupRouter(coord, identity, logics)

	port := getPort()
	utils.Info("starting auction ledger server", map[string]any{
		"port":     port,
		"identity": identity,
	})
	if err := router.Run(port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// buildStore selects the ledger store backend: PostgreSQL when DATABASE_URL
// is set, in-memory otherwise.
func buildStore() (store.LedgerStore, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return store.NewPostgresStore(context.Background(), url, layout.V1())
	}
	return store.NewMemoryStore(layout.V1()), nil
}

// upgradeAdmins returns the identities allowed to trigger upgrades.
func upgradeAdmins() []string {
	if admin := os.Getenv("UPGRADE_ADMIN"); admin != "" {
		return []string{admin}
	}
	return []string{"admin"}
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}
