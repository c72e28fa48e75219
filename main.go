package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/spigell/erranza/cmd"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
