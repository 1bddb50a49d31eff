package platform

import "runtime"

// Platform identifies the host printing stack family.
type Platform string

const (
	Windows     Platform = "windows"
	MacOS       Platform = "macos"
	Linux       Platform = "linux"
	Unsupported Platform = "unsupported"
)

// Current classifies the running OS. Windows uses the native spooler,
// macOS and Linux both drive CUPS command-line tools.
func Current() Platform {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unsupported
	}
}

// UsesCUPS reports whether the platform prints through CUPS tooling.
func (p Platform) UsesCUPS() bool {
	return p == MacOS || p == Linux
}

// Supported reports whether a printing backend exists for the platform.
func (p Platform) Supported() bool {
	return p != Unsupported
}
