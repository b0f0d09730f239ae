package main

import "github.com/dyike/stockdesk/internal/cli"

func main() {
	cli.Run()
}
