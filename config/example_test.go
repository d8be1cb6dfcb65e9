package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/filevault/config"
)

func ExampleWithContext() {
	cfg := &config.Config{}
	cfg.Server.Port = 8080

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved port: %d\n", retrieved.Server.Port)
	// Output: Retrieved port: 8080
}
