package main

import "madcal/internal/cli"

func main() {
	cli.Execute()
}
