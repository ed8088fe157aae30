package main

import (
	"os"

	"github.com/dexterite/prguard/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
