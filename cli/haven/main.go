package main

import (
	"os"

	havencmder "github.com/papercomputeco/haven/cmd/haven"
)

func main() {
	cmd := havencmder.NewHavenCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
