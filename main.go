package main

import (
	"log"

	"github.com/BookHut/BookHut-Backend/src/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}
