package main

import (
	"os"

	"classtrack/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
