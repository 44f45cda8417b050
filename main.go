package main

import "clubhours/cmd"

func main() {
	cmd.Execute()
}
