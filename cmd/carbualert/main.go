package main

import (
	"github.com/mathieuguryone-maker/CarbuAlert/internal/cli"
)

func main() {
	cli.Execute()
}
