package main

import "github.com/evidentry-project/evidentry/internal/cli"

func main() {
	cli.Execute()
}
