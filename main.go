package main

import "github.com/mihaisavezi/llmpanel/cmd"

func main() {
	cmd.Execute()
}
