// tributary runs the mempools and block producers of a validator's tributary
// chains.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
