package main

import "github.com/oculairmedia/context-gateway/cmd"

func main() {
	cmd.Execute()
}
