package main

import "projview-api/cmd/accountctl/cmd"

func main() {
	cmd.Execute()
}
