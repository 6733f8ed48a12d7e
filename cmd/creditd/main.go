// Command creditd runs the listing credit engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tbourn/go-listing-credits/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "creditd:", err)
		os.Exit(1)
	}
}
