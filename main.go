package main

import (
	"fmt"
	"os"

	"github.com/liliang-cn/docbatch/cmd/docbatch"
)

var version = "dev"

func main() {
	docbatch.SetVersion(version)
	if err := docbatch.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
