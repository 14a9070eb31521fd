package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spiffworkflow/backend/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
