//go:build windows

package main

import (
	"gomodsec/process"
	"gomodsec/process_windows"
)

func getProcess(pid process.ProcessID) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}
