package main

import "pgblast/cmd"

func main() {
	cmd.Execute()
}
