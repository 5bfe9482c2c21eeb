// Command userctl drives the user repository from the shell.
//
//	userctl create -name Ann -email ann@example.com -password s3cret
//	userctl -as 1 update -id 1 -name Anna
//	userctl list -limit 10 -offset 20
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Skryldev/userstore/app"
	"github.com/Skryldev/userstore/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitUsage
	}

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		return exitInternal
	}
	defer a.Close()

	c := &cli{
		users:        a.Users,
		out:          os.Stdout,
		errOut:       os.Stderr,
		bcryptCost:   cfg.Security.BcryptCost,
		newRequestID: uuid.NewString,
	}
	return c.run(ctx, args)
}
