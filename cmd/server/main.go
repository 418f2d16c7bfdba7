package main

import (
	"fmt"
	"log"
	"os"

	"github.com/EliuX/cloud-tools/api"
	"github.com/EliuX/cloud-tools/pkg/state"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	// Run history lives in PostgreSQL when a connection string is
	// provided; otherwise task state stays in process memory.
	var manager state.Manager
	if connectionString := os.Getenv("DB_CONNECTION_STRING"); connectionString != "" {
		driver := os.Getenv("DB_DRIVER")
		if driver == "" {
			driver = "postgres"
		}
		fmt.Printf("Initializing task manager with %s database...\n", driver)
		dbManager, err := state.NewDBManager(driver, connectionString)
		if err != nil {
			log.Fatal("Failed to initialize task manager:", err)
		}
		manager = dbManager
	} else {
		fmt.Println("DB_CONNECTION_STRING not set, using in-memory task manager")
		manager = state.NewMemoryManager()
	}

	api.InitTaskManager(manager)
	router := api.SetupRouter()

	fmt.Printf("Starting migration API server on port %s...\n", port)
	fmt.Printf("Health check: http://localhost:%s/health\n", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
