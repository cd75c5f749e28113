package rollup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Lock takes an advisory lockfile guarding the seen-set against a second
// concurrent run. The returned function releases the lock. A lockfile left
// behind by a process that is no longer running is broken with a warning.
func Lock(path string) (func(), error) {
	acquire := func() (func(), error) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()

		return func() { os.Remove(path) }, nil
	}

	release, err := acquire()
	if err == nil {
		return release, nil
	} else if !os.IsExist(err) {
		return nil, fmt.Errorf("unable to create lockfile %s (%w)", path, err)
	}

	if pid, ok := lockedBy(path); ok && alive(pid) {
		return nil, fmt.Errorf("seen-set is locked by a run already in progress (pid %v)", pid)
	}

	warnf("breaking stale lockfile %s", path)
	os.Remove(path)

	if release, err = acquire(); err != nil {
		return nil, fmt.Errorf("unable to create lockfile %s (%w)", path, err)
	}

	return release, nil
}

func lockedBy(path string) (int, bool) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil {
		return 0, false
	}

	return pid, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
