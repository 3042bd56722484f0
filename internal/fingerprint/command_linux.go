//go:build linux

package fingerprint

// PlatformCommand reads the board identifiers exposed by DMI.
func PlatformCommand() Command {
	return Command{
		Name: "sh",
		Args: []string{"-c", "cat /sys/devices/virtual/dmi/id/board_name ; cat /sys/devices/virtual/dmi/id/board_vendor ; cat /sys/devices/virtual/dmi/id/board_version"},
	}
}
