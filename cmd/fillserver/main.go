package main

import (
	"log"

	"github.com/hoverbird/ingrid-core/internal/config"
	"github.com/hoverbird/ingrid-core/internal/server"
)

func main() {
	cfg := config.Load()
	if err := server.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
