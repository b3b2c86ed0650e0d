// The main package for the recapd executable.
package main

import (
	"github.com/openrecap/recapd/cmd"
)

func main() {
	cmd.Execute()
}
