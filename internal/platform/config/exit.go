package config

import (
	"fmt"
	"os"
)

// Exitf writes "<command>: <message>" to stderr and exits with code 1.
func Exitf(command, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", command, fmt.Sprintf(format, args...))
	os.Exit(1)
}
