package main

import "github.com/okian/turnlat/internal/cli"

func main() {
	cli.Execute()
}
