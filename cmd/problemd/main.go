package main

import "github.com/tansive/problemadvice/internal/cli"

func main() {
	cli.Execute()
}
