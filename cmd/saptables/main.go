// Command saptables reads and edits SAP2000 database tables from the shell.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newApp(openService, os.Stdout).execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}
