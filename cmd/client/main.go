package main

import "github.com/resona/api/cmd/client/cmd"

func main() {
	cmd.Execute()
}
