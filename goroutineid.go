package carpal

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID returns an identifier for the calling goroutine,
// parsed out of the header line of its own stack trace ("goroutine 123
// [running]:"). Go deliberately exposes no public goroutine-id API; this
// is the standard workaround used throughout the ecosystem (the technique
// the corpus's joeycumines-go-utilpkg/goroutineid package is named for).
// [OneThreadCoopScheduler] uses it to pin itself and to decide whether
// InitSwitchThread/WaitFor/RunAllPending was called from its pinned
// goroutine; [CoopThreadPool] uses it to recognize its own workers. It is
// never used as a stable external identity.
func currentGoroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return -1
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
