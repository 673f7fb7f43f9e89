package main

import (
	"log"

	"github.com/thiagokokada/gitgud/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("gitgud: %v", err)
	}
}
