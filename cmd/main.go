// File: inventory-service/cmd/main.go
package main

import (
	"fmt"
	"os"
)

const (
	defaultAppName = "inventory" // App name for logger and CLI
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
