package main

import (
	"log"

	"github.com/harrisonrobin/tasktree/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
