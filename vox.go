package main

import (
	"fmt"
	"os"

	cli "github.com/voxloop/vox/cmd/vox"
	"github.com/voxloop/vox/internal/config"
)

func main() {
	c, err := config.Load(os.Getenv("VOX_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.SetupRootCmd(&c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
