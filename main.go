package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/thenoetrevino/dealflow/cmd"
	"github.com/thenoetrevino/dealflow/internal/cli"
)

func main() {
	err := cmd.Execute(context.Background())
	if err == nil {
		return
	}
	// Data commands report through the formatter; everything else is
	// printed here
	var cmdErr *cli.CommandError
	if !errors.As(err, &cmdErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
