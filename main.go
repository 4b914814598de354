package main

import "github.com/itinfra/seatsweep/cmd"

func main() {
	cmd.Execute()
}
