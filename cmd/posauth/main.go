package main

import "github.com/opencounter/posauth/cmd/posauth/cmd"

func main() {
	cmd.Execute()
}
