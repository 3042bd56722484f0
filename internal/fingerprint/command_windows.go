//go:build windows

package fingerprint

// PlatformCommand reads the system and BIOS manufacturers through WMI.
func PlatformCommand() Command {
	return Command{
		Name: "powershell",
		Args: []string{"-Command", "Write-Host (Get-WmiObject Win32_ComputerSystem).Manufacturer (Get-WmiObject Win32_BIOS).Manufacturer"},
	}
}
