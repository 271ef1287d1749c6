// Command bssstudy prepares the datasets of a blind source separation
// study and scores and charts separation runs.
//
// Usage:
//
//	bssstudy [flags] <command> [args]
//
// Commands:
//
//	fetch     - download and cache SiSEC 2010 and MIRD (and CMU ARCTIC)
//	mixture   - synthesize the reverberant mixture
//	score     - BSS Eval of the unprocessed mixture, optional oracle run
//	rir       - reverberation metrics of the selected MIRD responses
//	window    - properties of the analysis windows
//	palette   - print a color palette
//	runs      - list, show, import, export and delete stored runs
//	plot      - chart stored runs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cwbudde/algo-bss/cmd/bssstudy/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
