package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errPartial signals a run where at least one month was not delivered.
var errPartial = errors.New("some months were not exported")

var rootCmd = &cobra.Command{
	Use:           "showroom-kpi",
	Short:         "Exports monthly live KPI reports as CSV files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(newRunCmd(), newMonthsCmd())

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errPartial):
		stop()
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
