package main

import (
	"fmt"

	"github.com/dpt-pm/dpt/internal/sandbox"
)

// cmdChrootStage implements the internal second-stage token: chroot, drop
// uid, exec. It normally never returns, since a successful exec replaces
// the process image.
func cmdChrootStage(args []string) (int, error) {
	if err := sandbox.RunChrootStage(args); err != nil {
		return 1, fmt.Errorf("chroot stage: %w", err)
	}
	return 0, nil
}
