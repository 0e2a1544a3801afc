package main

import "github.com/encodeous/manasim/cmd"

func main() {
	cmd.Execute()
}
