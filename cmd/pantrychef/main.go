package main

import (
	"log"

	"github.com/pantrychef/pantrychef/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize the application: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
