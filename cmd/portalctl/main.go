// Command portalctl is the terminal client of the customer portal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/portal/internal/interfaces/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
