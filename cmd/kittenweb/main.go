package main

import (
	"os"

	"github.com/ent0n29/kittenweb/cmd/kittenweb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
