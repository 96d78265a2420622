package main

import (
	"restaurant-finder/cli"
)

func main() {
	cli.Execute()
}
