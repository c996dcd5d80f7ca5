package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cabconnect/internal/cli"
	"cabconnect/internal/client/domain"
)

func main() {
	cmd := cli.NewRootCommand(cli.Options{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var rep cli.Reported
		if !errors.As(err, &rep) {
			msg := err.Error()
			if domain.Classify(err) != domain.KindUnknown {
				msg = domain.UserMessage(err)
			}
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(1)
	}
}
