package main

import "github.com/vizloom/vizloom-cli/cmd"

func main() {
	cmd.Execute()
}
