package models

import (
	"fmt"
	"os/exec"
)

// lookupTools resolves each named executable on PATH. The first one that
// cannot be resolved aborts the check with ErrMissingDependency, before any
// network activity can have taken place.
func lookupTools(names []string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
	}
	return nil
}
