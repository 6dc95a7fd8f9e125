// Command secretary is the Секретарь+ assistant: a terminal chat, one-shot
// commands over the stored history, and an HTTP API.
//
// Usage:
//
//	GEMINI_API_KEY=... secretary              # terminal chat
//	secretary ask "Что у меня завтра?"
//	secretary serve --addr 127.0.0.1:8080
//
// Configuration is read from flags, then the environment, then a .env file
// in the working directory. Run "secretary doctor" to check it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "secretary: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookup, err := envLookup(dotenvFile)
	if err != nil {
		return err
	}
	return newRootCmd(lookup).ExecuteContext(ctx)
}
