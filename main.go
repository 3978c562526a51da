package main

import "github.com/Mohsinsiddi/donation-forwarder/cmd"

func main() {
	cmd.Execute()
}
