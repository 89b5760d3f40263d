package main

import "github.com/Rorical/farmchat/cmd"

func main() {
	cmd.Execute()
}
