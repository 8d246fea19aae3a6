package sandbox

import (
	"os"
	"syscall"
)

// execCommand replaces the current process image with command, called
// with the given argv (argv[0] conventionally equal to command) and the
// current process's environment.
func execCommand(command string, argv []string) error {
	return syscall.Exec(command, argv, os.Environ())
}
