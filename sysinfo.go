package uplink

import (
	"runtime"
	"sync"

	"github.com/evergreen-ci/birch"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// Platform supplies the facts the host application knows about
// itself.
type Platform interface {
	// Name and Version identify the host platform, e.g. the server
	// software and its build.
	Name() string
	Version() string
	// OnlineMode reports whether the host authenticates its users.
	OnlineMode() bool
	// ActiveUnits returns the number of active units, such as
	// connected users. It may fail on platform revisions that do not
	// support the primary accessor.
	ActiveUnits() (int, error)
}

// UnitCountFallback may be implemented by a Platform whose primary
// ActiveUnits accessor is unavailable on some revisions.
type UnitCountFallback interface {
	FallbackActiveUnits() int
}

// HostFacts is the process-wide part of a report.
type HostFacts struct {
	ServerUUID      string
	ActiveUnits     int
	OnlineMode      bool
	PlatformVersion string
	PlatformName    string
	RuntimeVersion  string
	OSName          string
	OSArch          string
	OSVersion       string
	CoreCount       int
}

type osFacts struct {
	name    string
	arch    string
	version string
	cores   int
}

var (
	osProbe     sync.Once
	probedFacts osFacts
)

// systemFacts probes the operating system once per process.
func systemFacts() osFacts {
	osProbe.Do(func() {
		probedFacts = osFacts{
			name:  runtime.GOOS,
			arch:  runtime.GOARCH,
			cores: runtime.NumCPU(),
		}

		if info, err := host.Info(); err == nil {
			if info.OS != "" {
				probedFacts.name = info.OS
			}
			if info.KernelVersion != "" {
				probedFacts.version = info.KernelVersion
			} else {
				probedFacts.version = info.PlatformVersion
			}
		}

		if cores, err := cpu.Counts(true); err == nil && cores > 0 {
			probedFacts.cores = cores
		}
	})

	return probedFacts
}

// CollectHostFacts takes a point-in-time snapshot of the host.
func CollectHostFacts(platform Platform, serverUUID string) HostFacts {
	sys := systemFacts()

	return HostFacts{
		ServerUUID:      serverUUID,
		ActiveUnits:     activeUnits(platform),
		OnlineMode:      platform.OnlineMode(),
		PlatformVersion: platform.Version(),
		PlatformName:    platform.Name(),
		RuntimeVersion:  runtime.Version(),
		OSName:          sys.name,
		OSArch:          sys.arch,
		OSVersion:       sys.version,
		CoreCount:       sys.cores,
	}
}

func activeUnits(platform Platform) int {
	count, err := platform.ActiveUnits()
	if err == nil {
		return count
	}

	if fallback, ok := platform.(UnitCountFallback); ok {
		return fallback.FallbackActiveUnits()
	}

	return 0
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Document renders the facts in the key order of the wire format,
// followed by the plugin fragments.
func (f HostFacts) Document(plugins []*birch.Document) *birch.Document {
	pluginData := birch.NewArray()
	for _, doc := range plugins {
		pluginData.Append(birch.VC.Document(doc))
	}

	return birch.NewDocument(
		birch.EC.String("serverUUID", f.ServerUUID),
		birch.EC.Int64("playerAmount", int64(f.ActiveUnits)),
		birch.EC.Int32("onlineMode", boolToInt(f.OnlineMode)),
		birch.EC.String("bukkitVersion", f.PlatformVersion),
		birch.EC.String("bukkitName", f.PlatformName),
		birch.EC.String("javaVersion", f.RuntimeVersion),
		birch.EC.String("osName", f.OSName),
		birch.EC.String("osArch", f.OSArch),
		birch.EC.String("osVersion", f.OSVersion),
		birch.EC.Int64("coreCount", int64(f.CoreCount)),
		birch.EC.Array("plugins", pluginData),
	)
}
