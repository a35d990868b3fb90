//go:build !unix

package command

import "os/exec"

// Without process groups the default CommandContext kill applies.
func killProcessGroupOnCancel(cmd *exec.Cmd) {}
