package main

import "github.com/dshills/docsync-mcp/internal/cli"

func main() {
	cli.Execute()
}
