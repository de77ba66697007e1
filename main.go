package main

import "github.com/KaramelBytes/ecomdash/cmd"

func main() {
	cmd.Execute()
}
