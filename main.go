package main

import "github.com/ChenBigdata421/jxt-customer-gateway/cmd"

func main() {
	cmd.Execute()
}
