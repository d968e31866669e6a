package main

import (
	"os"

	"github.com/quotadeck/quotadeck/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
