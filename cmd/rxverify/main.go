// SPDX-License-Identifier: Apache-2.0

// Command rxverify extracts and validates prescription data from OCR output.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxverify/rxverify-mcp/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
