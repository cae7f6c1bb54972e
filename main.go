package main

import "github.com/dayuer/guardbot-go/cmd"

func main() {
	cmd.Execute()
}
