package main

import "github.com/Alturino/shopcart/cmd"

func main() {
	cmd.Start()
}
