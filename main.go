package main

import (
	// PostgreSQL driver for the device directory
	_ "github.com/lib/pq"

	"github.com/rohitksw/sw-alert-system/cmd"
)

func main() {
	cmd.Execute()
}
