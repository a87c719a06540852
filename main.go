package main

import (
	"github.com/harihara-subrahmaniam-muralidharan/binnacle/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
