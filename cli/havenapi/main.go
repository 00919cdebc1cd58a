package main

import (
	"fmt"
	"os"

	servecmder "github.com/papercomputeco/haven/cmd/haven/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "havenapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .haven/ config directory")

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
