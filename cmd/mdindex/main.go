package main

import "github.com/mgomes/mdindex/cmd/mdindex/cmd"

func main() {
	cmd.Execute()
}
