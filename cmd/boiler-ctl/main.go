package main

import "github.com/oshokin/boiler-alarm/cmd/boiler-ctl/cmd"

func main() {
	cmd.Execute()
}
