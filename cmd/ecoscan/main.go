package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rajasatyajit/EcoScan/internal/app"
	"github.com/rajasatyajit/EcoScan/internal/cli"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := cli.NewRootCommand(app.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported() {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
