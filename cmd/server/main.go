package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/duplofs/internal/server"
	"github.com/dmitrijs2005/duplofs/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}

}
