package main

import "github.com/natnetgo/natnet/cmd/natnetclient/cmd"

func main() {
	cmd.Execute()
}
