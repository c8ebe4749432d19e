package main

import (
	"fmt"
	"os"

	"github.com/Ning0612/Filestate/internal/logger"
)

func main() {
	defer logger.Shutdown()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
