package main

import "github.com/iksnae/orgdash/cmd"

func main() {
	cmd.Execute()
}
