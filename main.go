package main

import "github.com/Go-routine-4595/sensor-watch/cmd"

func main() {
	cmd.Execute()
}
