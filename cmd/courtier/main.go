package main

import "github.com/mselway/courtier/internal/cli"

func main() {
	cli.Execute()
}
