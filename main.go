package main

import "github.com/adamgarcia4/goLearning/gossipsim/cmd"

func main() {
	cmd.Execute()
}
