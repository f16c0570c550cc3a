// Copyright © 2018 The ELPS authors

package main

import "github.com/luthersystems/emmylua/cmd"

func main() {
	cmd.Execute()
}
