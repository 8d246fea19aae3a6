package sandbox

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// RunChrootStage implements the ChrootToken second stage: chroot into
// args[0], restore the previous working directory (or "/" if it no longer
// resolves inside the new root), drop to the uid named by args[1], and
// exec args[2] with the remaining entries as its arguments. It never
// returns on success, since syscall.Exec replaces the process image; on
// failure it returns an error for the caller to report and exit non-zero
// with.
func RunChrootStage(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("chroot stage: expected <scratch> <uid> <command> [args...], got %d arguments", len(args))
	}

	scratch, uidStr, command := args[0], args[1], args[2]
	childArgs := args[2:]

	uid, err := strconv.Atoi(uidStr)
	if err != nil {
		return fmt.Errorf("chroot stage: invalid uid %q: %w", uidStr, err)
	}

	prevDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("chroot stage: getting current directory: %w", err)
	}

	if err := os.Chdir(scratch); err != nil {
		return fmt.Errorf("chroot stage: entering scratch directory %s: %w", scratch, err)
	}
	if err := unix.Chroot("."); err != nil {
		return fmt.Errorf("chroot stage: chroot into %s: %w", scratch, err)
	}

	if info, err := os.Stat(prevDir); err == nil && info.IsDir() {
		_ = os.Chdir(prevDir)
	} else {
		_ = os.Chdir("/")
	}

	if uid != 0 {
		if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf("chroot stage: dropping to uid %d: %w", uid, err)
		}
	}

	return execCommand(command, childArgs)
}
