// Package cabi exports the bridge's call table with C linkage.
//
// Link it into a c-shared or c-archive build (see libe2bridge) and include the
// output of 'e2bridge header' on the host side. Every value crossing the
// boundary lives in the C heap and follows the same ownership rules as the Go
// API: arguments are consumed by the call, results are released with
// free_WireSyncReturnStruct.
package cabi

//go:generate go run .. header --ptr-size 8 --types-only -o bridge_types.h

import (
	"sync"

	"github.com/suborbital/e2bridge/bridge"
	"github.com/suborbital/e2bridge/options"
	"github.com/suborbital/e2bridge/post"
)

var (
	cheap *CHeap

	instance     *bridge.Bridge
	instanceOnce sync.Once
)

// Instance returns the process-wide bridge the exported functions call,
// creating it on first use with options read from the environment.
// It posts through post.Default.
func Instance() *bridge.Bridge {
	instanceOnce.Do(func() {
		opts, err := options.NewWithModifiers()
		if err != nil {
			// there is no way to report an error across the boundary this early
			panic(err)
		}

		cheap = NewCHeap()

		b, err := bridge.New(opts, bridge.WithHeap(cheap), bridge.WithRegistry(post.Default))
		if err != nil {
			panic(err)
		}

		instance = b
	})

	return instance
}
