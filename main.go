package main

import "github.com/yarlson/go-wiggum/cmd"

func main() {
	cmd.Execute()
}
