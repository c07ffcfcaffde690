package main

import (
	"os"

	"github.com/avezina/chatscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
