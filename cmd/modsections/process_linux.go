//go:build linux

package main

import (
	"gomodsec/process"
	"gomodsec/process_linux"
)

func getProcess(pid process.ProcessID) (process.Process, error) {
	return process_linux.NewWithPID(pid)
}
