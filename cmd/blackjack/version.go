package main

import "fmt"

// VersionCmd prints the build version
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("blackjack", version)
	return nil
}
