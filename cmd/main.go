package main

import (
	"log"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/bootstrap"
)

func main() {
	app, err := bootstrap.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Stop()

	app.Start()
}
