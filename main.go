package main

import "github.com/vibast-solutions/ms-go-proxypay/cmd"

func main() {
	cmd.Execute()
}
