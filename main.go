package main

import "fechador/cmd"

func main() {
	cmd.Execute()
}
