package main

import "github.com/kozaktomas/face-roster/cmd"

func main() {
	cmd.Execute()
}
