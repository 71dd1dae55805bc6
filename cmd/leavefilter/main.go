//go:build windows

// Command leavefilter builds the DLL that the overlay hooks into the render
// process's UI thread:
//
//	go build -buildmode=c-shared -o leavefilter.dll ./cmd/leavefilter
//
// The exported LeaveFilterProc is a WH_GETMESSAGE procedure. It suppresses
// pointer-leave notifications on marked render widgets unless the
// controlling process authorized them through the explicit-leave property.
package main

import "C"

import (
	"deskweb/internal/filter"
	"deskweb/internal/winprop"
)

var leaveFilter = filter.New(winprop.NewNative())

//export LeaveFilterProc
func LeaveFilterProc(code int32, wParam uintptr, lParam uintptr) uintptr {
	return leaveFilter.Hook(code, wParam, lParam)
}

func main() {}
