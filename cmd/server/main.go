package main

import (
	"log"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to start controller: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Controller stopped with error: %v", err)
	}
}
