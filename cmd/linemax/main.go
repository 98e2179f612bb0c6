package main

import (
	"context"
	"os"

	"github.com/agbru/linemax/internal/app"
	apperrors "github.com/agbru/linemax/internal/errors"
)

func main() {
	ctx := context.Background()

	if name, ok := app.Subcommand(os.Args); ok {
		os.Exit(app.RunSubcommand(ctx, name, os.Args, os.Stdout, os.Stderr))
	}
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			os.Exit(apperrors.ExitSuccess)
		}
		os.Exit(apperrors.HandleError(err, os.Stderr))
	}

	os.Exit(application.Run(ctx, os.Stdout))
}
