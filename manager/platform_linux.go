//go:build linux
// +build linux

// File: manager/platform_linux.go
// Author: momentics <momentics@gmail.com>

package manager

import "runtime"

// registerPlatformProbes adds Linux-specific debug probes.
func registerPlatformProbes(dp *debugProbes) {
	dp.register("platform.cpus", func() any { return runtime.NumCPU() })
	dp.register("platform.os", func() any { return "linux" })
}
