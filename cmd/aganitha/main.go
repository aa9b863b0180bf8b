// Command aganitha builds and queries the chatbot's vector index.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driving/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
