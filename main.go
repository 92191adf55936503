package main

import (
	"os"

	"PipelineUtils/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
