package main

import "github.com/adntgv/gptree/internal/cli"

func main() {
	cli.Execute()
}
