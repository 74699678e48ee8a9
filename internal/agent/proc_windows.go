//go:build windows

package agent

import (
	"os/exec"
	"strconv"
	"syscall"
)

// setSysProcAttr configures platform-specific process attributes.
// On Windows, we use CREATE_NEW_PROCESS_GROUP so the child process
// can be terminated without affecting the parent.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminateGroup ends the process tree rooted at pid.
func terminateGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// killGroup forcibly ends the process tree rooted at pid.
func killGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}
