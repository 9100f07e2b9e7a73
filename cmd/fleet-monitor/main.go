package main

import "github.com/Phaeld/fiap-enterprise-challenge/cmd/fleet-monitor/commands"

func main() {
	commands.Execute()
}
