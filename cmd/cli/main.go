package main

import "github.com/storage-analysis/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
