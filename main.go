package main

import "picturegram-sync/cmd"

func main() {
	cmd.Execute()
}
