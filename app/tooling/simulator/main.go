package main

import "github.com/poolsim/mining/app/tooling/simulator/cmd"

func main() {
	cmd.Execute()
}
