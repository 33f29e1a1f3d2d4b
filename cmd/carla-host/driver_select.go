package main

import (
	"github.com/carla-project/carla-engine/pkg/driver"
	"github.com/carla-project/carla-engine/pkg/engineopts"
)

// demoDriver picks a driver.Driver variant that works without any real
// hardware or sub-process attached, so this demo runs the same way in
// CI as on a developer's machine: HostedAsPlugin, driven directly by
// this command's own block loop via Engine.Process.
func demoDriver(opts engineopts.Options) driver.Driver {
	return driver.NewHostedAsPluginDriver(opts.Device.BufferSize, opts.Device.SampleRate)
}
