package main

import "github.com/jayteealao/lockbench/cmd"

func main() {
	cmd.Execute()
}
