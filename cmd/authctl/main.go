package main

import "github.com/ErlanBelekov/magic-auth/internal/cli"

func main() {
	cli.Execute()
}
