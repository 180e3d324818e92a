//go:build !windows

package main

import "os"

func commandLineArgs() []string {
	return os.Args[1:]
}
