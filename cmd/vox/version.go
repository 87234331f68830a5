package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/voxloop/vox/internal/voice/onnx"
)

// Version is the release version, overridable at build time.
var Version = "1.0.0"

// VersionCmd prints version and build information.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vox %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
			if onnx.Available() {
				fmt.Println("engines: dsp, onnx")
			} else {
				fmt.Println("engines: dsp")
			}
		},
	}
}
