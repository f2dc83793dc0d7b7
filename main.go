package main

import "valtoken-monitor/cmd"

func main() {
	cmd.Execute()
}
