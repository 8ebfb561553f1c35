package main

import "github.com/maxwelfreitas/schwordcloud/cmd"

func main() {
	cmd.Execute()
}
