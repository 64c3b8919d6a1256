// Command manp computes the Minimal Arithmetic Noise Padding of programs
// on encrypted integers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/manp/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
