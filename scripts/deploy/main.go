// deploy: publishes the donation forwarder for the network behind RPC_URL and
// writes chain<id>.yaml.
//
// Run from the Hardhat project root:
//
//	go run ./scripts/deploy
package main

import "github.com/Mohsinsiddi/donation-forwarder/cmd"

func main() {
	cmd.ExecuteDeploy()
}
