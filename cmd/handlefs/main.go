package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newCLI().Exec(); err != nil {
		fmt.Fprintf(os.Stderr, "handlefs: %v\n", err)
		os.Exit(1)
	}
}
