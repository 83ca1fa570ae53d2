package main

import "github.com/lu-zhengda/sendersweep/internal/cli"

func main() {
	cli.Execute()
}
