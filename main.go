package main

import "github.com/selimozcann/RedirectCounter/cmd"

func main() {
	cmd.Execute()
}
