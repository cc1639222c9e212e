// Command pustak is a command-line client for PustakLink.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/codingconcepts/env"
)

func main() {
	var defaults cliEnv
	if err := env.Set(&defaults); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(defaults).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
