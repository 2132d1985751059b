//go:build !unix

package hooks

import "os/exec"

func setProcGroup(cmd *exec.Cmd) {}

// killProcGroup falls back to killing the direct child.
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process != nil {
		return cmd.Process.Kill()
	}
	return nil
}
