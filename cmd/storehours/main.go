package main

import "github.com/example/storehours/cmd"

func main() {
	cmd.Execute()
}
