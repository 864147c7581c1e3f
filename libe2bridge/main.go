// Command libe2bridge builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libe2bridge.so ./libe2bridge
package main

import (
	_ "github.com/suborbital/e2bridge/cabi"
)

func main() {}
