package main

import (
	"os"

	"github.com/ghostlink/bridge-stack/cli/cmd"
	"github.com/ghostlink/bridge-stack/cli/pkg/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}
