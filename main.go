package main

import (
	"os"

	"github.com/dbsteward/pglifecycle/lib"
)

func main() {
	os.Exit(lib.NewPGLifecycle(os.Stdout).Run(os.Args[1:]))
}
