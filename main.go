package main

import (
	"os"

	"github.com/salonkit/salonkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
