//go:build !(js && wasm)

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "benchscope wasm bridge: build with GOOS=js GOARCH=wasm")
	os.Exit(2)
}
