package main

import "github.com/hsaeed3/yosemite/internal/cli"

func main() {
	cli.Execute()
}
