package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/levimarcus10/BerlinOriginal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported() {
			fmt.Fprintln(os.Stderr, "berlinreg:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
