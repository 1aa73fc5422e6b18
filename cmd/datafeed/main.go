package main

import "github.com/vietddude/datafeed/internal/cli"

func main() {
	cli.Execute()
}
