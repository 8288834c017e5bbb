// Command formflow compiles questionnaire forms, resolves what respondents
// see, plays respondent scripts and manages stored submissions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/formflow/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "formflow: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
