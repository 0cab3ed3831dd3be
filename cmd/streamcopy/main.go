package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "streamcopy",
		Short:   "Copy files with streamed SHA-1 hashing, and verify the result",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newCopyCmd())
	root.AddCommand(newVerifyCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
