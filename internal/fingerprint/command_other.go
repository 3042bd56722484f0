//go:build !linux && !darwin && !windows

package fingerprint

// PlatformCommand has no hardware command on this platform.
func PlatformCommand() Command {
	return Command{}
}
