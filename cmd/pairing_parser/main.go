package main

import (
	"pairing_parser/internal/cli"
)

func main() {
	cli.Execute()
}
