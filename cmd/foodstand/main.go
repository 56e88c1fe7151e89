package main

import (
	"fmt"
	"os"

	"github.com/roach88/foodstand/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "foodstand: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
