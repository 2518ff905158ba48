package main

import "github.com/pinpt/gitpack/cmd"

func main() {
	cmd.RegisterRepack()
	cmd.Execute()
}
