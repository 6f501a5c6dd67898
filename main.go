package main

import "github.com/okechukwu95dev/pitchindex/cmd"

func main() {
	cmd.Execute()
}
