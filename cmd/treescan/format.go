package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/jward/treescan"
)

// printCompleted reports the scan duration in milliseconds.
func printCompleted(w io.Writer, sum *treescan.Summary) {
	ms := color.New(color.Bold).Sprint(sum.Elapsed.Milliseconds())
	fmt.Fprintf(w, "Analysis completed in %s ms\n", ms)
}
