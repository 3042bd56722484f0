//go:build darwin

package fingerprint

// PlatformCommand reads the hardware model from sysctl.
func PlatformCommand() Command {
	return Command{
		Name: "sh",
		Args: []string{"-c", "sysctl hw.model | sed 's/.* //g'"},
	}
}
