//go:build !windows

package extractor

import "os/exec"

func hideWindow(_ *exec.Cmd) {}
