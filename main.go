package main

import (
	"os"

	"github.com/suborbital/e2bridge/command"
)

func main() {
	if err := command.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
