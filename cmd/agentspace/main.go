// Command agentspace asks several AI providers the same question through
// the agentspace backend and prints their answers side by side.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
