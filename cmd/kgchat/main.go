package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"kgchat/internal/escape"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", escape.Terminal(err.Error()))
		stop()
		os.Exit(1)
	}
}
