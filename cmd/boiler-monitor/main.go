package main

import "github.com/oshokin/boiler-alarm/cmd/boiler-monitor/cmd"

func main() {
	cmd.Execute()
}
