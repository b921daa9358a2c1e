package main

import (
	"os"

	"github.com/finbridge/finbridge/internal/cli"
)

func main() {
	cli.InitRoot()
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
