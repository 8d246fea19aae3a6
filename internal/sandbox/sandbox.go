// Package sandbox runs a command inside a chrooted, bind-mounted copy of
// an environment tree: a scratch directory is populated, the store and a
// handful of host directories are bind-mounted in, and a re-exec'd second
// stage performs the chroot, uid drop, and final exec.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/dpt-pm/dpt/internal/env"
	"github.com/dpt-pm/dpt/internal/repoindex"
)

// ChrootToken is the internal second-stage subcommand name dpt re-execs
// itself with. It is not a user-facing command: running it directly is
// meaningless outside the re-exec dpt performs internally, hence the name.
const ChrootToken = "chroot-not-intended-for-interactive-use"

// hostBindDirs are bind-mounted from the host into the scratch root when
// present there and missing from the environment tree, alongside the
// store. "proc" is included so sandboxed programs see a working process
// tree.
var hostBindDirs = []string{"dev", "mnt", "media", "run", "var", "home", "tmp", "proc"}

// RunOptions configures a sandboxed invocation.
type RunOptions struct {
	// Records is the closed set of packages to union into the scratch
	// directory (internal/env.Build's input).
	Records []repoindex.Record
	// BaseDir is layered beneath Records the same way internal/env.Build
	// layers it; empty means no base.
	BaseDir string
	// StoreDir is bind-mounted into the scratch root at the same
	// absolute path it has on the host, so symlinks inside the unioned
	// tree that point back at the store keep resolving.
	StoreDir string
	// ScratchRoot is the directory new scratch directories are created
	// under, e.g. <dpt-dir>/run.
	ScratchRoot string
	// Command and Args name the program to run, resolved against
	// <scratch>/bin then <scratch>/usr/bin.
	Command string
	Args    []string
	// UID is the user ID to drop to before exec. 0 means "do not drop".
	UID int
	// ReplaceProcess is carried for callers but Run does not read it: the
	// second stage always exec(2)s the command in place of itself, and Run
	// always spawns that second stage as a child and waits on it.
	ReplaceProcess bool
}

// errSignalled is returned internally when the child was killed by a
// signal rather than exiting with a code.
var errSignalled = errors.New("child process terminated by signal")

// Run creates a scratch directory, builds the environment into it,
// bind-mounts the store and host directories into it, chroots a re-exec'd
// second stage into it, runs the command, and tears the mounts down
// afterward. It returns the child's exit code, or 89 if the child was
// killed by a signal rather than exiting normally.
func Run(ctx context.Context, opts RunOptions) (int, error) {
	scratch, err := newScratchDir(opts.ScratchRoot)
	if err != nil {
		return 0, fmt.Errorf("creating scratch directory: %w", err)
	}

	if err := mountScratch(opts, scratch); err != nil {
		teardown(scratch)
		return 0, err
	}

	bin, err := locateCommand(scratch, opts.Command)
	if err != nil {
		teardown(scratch)
		return 0, err
	}

	code, runErr := runChrooted(ctx, scratch, bin, opts)
	if errors.Is(runErr, errSignalled) {
		// A signalled child is reported through its exit code, 89.
		runErr = nil
	}

	if tdErr := teardown(scratch); tdErr != nil && runErr == nil {
		return code, tdErr
	}
	return code, runErr
}

// newScratchDir picks a UUID-suffixed directory under root that does not
// yet exist, retrying on collision, and creates it.
func newScratchDir(root string) (string, error) {
	for attempt := 0; attempt < 16; attempt++ {
		candidate := filepath.Join(root, uuid.NewString())
		if _, err := os.Stat(candidate); err == nil {
			continue
		}
		if err := os.MkdirAll(candidate, 0700); err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", errors.New("could not allocate a fresh scratch directory after 16 attempts")
}

// mountScratch populates scratch with the environment union, then
// bind-mounts the store and any present host directories, each remounted
// MS_SLAVE so unmounts under the scratch directory don't propagate back to
// the host.
func mountScratch(opts RunOptions, scratch string) error {
	if err := env.Build(opts.Records, opts.StoreDir, opts.BaseDir, scratch); err != nil {
		return fmt.Errorf("building environment: %w", err)
	}

	storeTarget := filepath.Join(scratch, opts.StoreDir)
	if err := os.MkdirAll(storeTarget, 0777); err != nil {
		return fmt.Errorf("creating store bind target: %w", err)
	}
	if err := bindMount(opts.StoreDir, storeTarget); err != nil {
		return fmt.Errorf("bind-mounting store: %w", err)
	}

	for _, name := range hostBindDirs {
		hostPath := filepath.Join("/", name)
		if _, err := os.Stat(hostPath); err != nil {
			continue
		}
		target := filepath.Join(scratch, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := os.MkdirAll(target, 0777); err != nil {
			return fmt.Errorf("creating bind target %s: %w", name, err)
		}
		if err := bindMount(hostPath, target); err != nil {
			return fmt.Errorf("bind-mounting %s: %w", name, err)
		}
	}

	return nil
}

// bindMount performs a recursive bind mount of src onto dest, then remounts
// it MS_SLAVE so mount events don't propagate back to the host namespace.
func bindMount(src, dest string) error {
	if err := unix.Mount(src, dest, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return err
	}
	return unix.Mount("", dest, "", unix.MS_SLAVE|unix.MS_REC, "")
}

// locateCommand finds cmd under scratch's "bin" then "usr/bin".
func locateCommand(scratch, cmd string) (string, error) {
	for _, dir := range []string{"bin", "usr/bin"} {
		candidate := filepath.Join(scratch, dir, cmd)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Join("/", dir, cmd), nil
		}
	}
	return "", fmt.Errorf("command %q not found in bin or usr/bin of the environment", cmd)
}

// runChrooted re-execs the current binary as the internal chroot second
// stage, which performs the chroot, uid drop, and exec of the target
// command relative to the chroot root.
func runChrooted(ctx context.Context, scratch, bin string, opts RunOptions) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locating own executable for re-exec: %w", err)
	}

	args := append([]string{ChrootToken, scratch, strconv.Itoa(opts.UID), bin}, opts.Args...)
	cmd := exec.CommandContext(ctx, self, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting sandboxed process: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case s := <-sig:
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, s.(syscall.Signal))
			}
		case err := <-done:
			return exitCodeOf(cmd, err)
		}
	}
}

// exitCodeOf extracts the child's exit status, mapping an unknown status
// (killed by signal) to 89.
func exitCodeOf(cmd *exec.Cmd, waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Exited() {
				return status.ExitStatus(), nil
			}
			if status.Signaled() {
				return 89, errSignalled
			}
		}
		return exitErr.ExitCode(), nil
	}

	return 0, waitErr
}

// teardown unmounts every mount under scratch, retrying lazily-detached
// unmounts up to ten passes before giving up, then removes scratch if it
// is now empty of mounts. It never deletes scratch while mounts remain,
// to avoid destroying live binds out from under a still-running process.
func teardown(scratch string) error {
	for pass := 0; pass < 10; pass++ {
		mounts, err := mountedPaths(scratch)
		if err != nil {
			return err
		}
		if len(mounts) == 0 {
			return os.RemoveAll(scratch)
		}

		for i := len(mounts) - 1; i >= 0; i-- {
			if err := unix.Unmount(mounts[i], unix.MNT_DETACH); err != nil {
				_ = unix.Unmount(mounts[i], 0)
			}
		}
	}

	return fmt.Errorf("giving up tearing down sandbox mounts under %s after 10 passes", scratch)
}

// mountedPaths returns the mount points under scratch (scratch included) in
// /proc/self/mountinfo order, i.e. the order they were mounted; teardown
// walks the list backwards.
func mountedPaths(scratch string) ([]string, error) {
	info, err := os.ReadFile("/proc/self/mountinfo")
	if err != nil {
		return nil, fmt.Errorf("reading mountinfo: %w", err)
	}

	var paths []string
	for _, line := range splitLines(info) {
		fields := splitFields(line)
		if len(fields) < 5 {
			continue
		}
		mountPoint := fields[4]
		if mountPoint == scratch || hasPathPrefix(mountPoint, scratch) {
			paths = append(paths, mountPoint)
		}
	}
	return paths, nil
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	return path[len(prefix)] == '/'
}

func splitLines(b []byte) []string {
	var lines []string
	start := 0
	for i, c := range b {
		if c == '\n' {
			if i > start {
				lines = append(lines, string(b[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(b) {
		lines = append(lines, string(b[start:]))
	}
	return lines
}

func splitFields(line string) []string {
	var fields []string
	start := -1
	for i, c := range line {
		if c == ' ' || c == '\t' {
			if start >= 0 {
				fields = append(fields, line[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, line[start:])
	}
	return fields
}
