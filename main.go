package main

import "github.com/faughnn/factreel/cmd"

func main() {
	cmd.Execute()
}
