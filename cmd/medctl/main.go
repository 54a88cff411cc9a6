package main

import (
	"os"

	"github.com/jwalitptl/medconsult-api/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
