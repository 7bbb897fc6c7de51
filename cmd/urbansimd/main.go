// Command urbansimd serves the urban scenario simulation core over HTTP and
// gRPC, and exposes the scoring, optimization and comparison engines as
// one-shot commands.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
