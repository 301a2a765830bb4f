// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mannyrivera2010/go-quadmem/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Execute the CLI
	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
