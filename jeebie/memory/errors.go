package memory

import "fmt"

// ViolationError is raised, as a panic, when the CPU touches an address the
// bus has nothing mapped to.
type ViolationError struct {
	Op      string
	Address uint16
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("memory: %s at unmapped address 0x%04X", e.Op, e.Address)
}
