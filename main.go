package main

import (
	"os"

	"github.com/coderag/coderag/cmd/root"
)

func main() {
	if err := root.Execute(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}
