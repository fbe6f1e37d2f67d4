package main

import (
	"os"

	"github.com/layer-3/cobic/cmd/cobic/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
