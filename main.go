package main

import "smartplace-sync/cmd"

func main() {
	cmd.Execute()
}
