package fingerprint

// Command is the shell invocation that prints hardware identifiers.
type Command struct {
	Name string
	Args []string
}

// Supported reports whether the platform has a hardware command.
func (c Command) Supported() bool { return c.Name != "" }
