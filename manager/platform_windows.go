//go:build windows
// +build windows

// File: manager/platform_windows.go
// Author: momentics <momentics@gmail.com>

package manager

import "runtime"

// registerPlatformProbes adds Windows-specific debug probes.
func registerPlatformProbes(dp *debugProbes) {
	dp.register("platform.cpus", func() any { return runtime.NumCPU() })
	dp.register("platform.os", func() any { return "windows" })
}
