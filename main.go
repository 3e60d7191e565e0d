package main

import "github.com/akvlib/akv/cmd"

func main() {
	cmd.Execute()
}
