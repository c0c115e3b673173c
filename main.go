package main

import (
	"log"

	"github.com/spigell/job-intake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
