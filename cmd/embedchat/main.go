package main

import "github.com/embedchat/embedchat/cmd/embedchat/cmd"

func main() {
	cmd.Execute()
}
