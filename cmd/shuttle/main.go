package main

import "github.com/Freeeeeet/shuttle_booking/internal/cli"

func main() {
	cli.Execute()
}
