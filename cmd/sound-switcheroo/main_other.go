//go:build !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "sound-switcheroo manages Windows audio endpoints and only runs on Windows")
	os.Exit(1)
}
