package main

import "nolp/cmd"

func main() {
	cmd.Execute()
}
