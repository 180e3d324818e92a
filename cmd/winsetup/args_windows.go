//go:build windows

package main

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// commandLineArgs re-splits the raw command line with CommandLineToArgvW so
// quoted paths with trailing backslashes survive intact.
func commandLineArgs() []string {
	cmdLine := windows.GetCommandLine()
	if cmdLine == nil {
		return os.Args[1:]
	}
	var argc int32
	argv, err := windows.CommandLineToArgv(cmdLine, &argc)
	if err != nil || argv == nil || argc < 1 {
		return os.Args[1:]
	}
	defer windows.LocalFree(windows.Handle(uintptr(unsafe.Pointer(argv))))

	args := make([]string, 0, argc-1)
	for _, p := range argv[1:argc] {
		if p != nil {
			args = append(args, windows.UTF16PtrToString(&p[0]))
		}
	}
	return args
}
