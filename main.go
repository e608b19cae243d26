package main

import "hubclean/internal/cli"

func main() {
	cli.Execute()
}
