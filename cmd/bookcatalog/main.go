package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"bookcatalog/internal/cli/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
