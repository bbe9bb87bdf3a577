package main

import "github.com/be4breach/reportd/cmd"

func main() {
	cmd.Execute()
}
