package main

import (
	"os"

	"github.com/scholarloop/scholarloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
