package main

import (
	"os"

	"github.com/bjornkeller/ModDevelopmentTools/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
