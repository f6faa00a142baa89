// Package diag holds the core's ambient diagnostics: the errno-like error
// taxonomy of spec.md §7, the panic-with-dump path for invariant
// violations, and pprof-shaped snapshots of allocator/scheduler state.
package diag

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Err_t is the core's internal error taxonomy. Zero means success;
// negative values name a failure class. POSIX errno mapping, if any, is a
// higher layer's job -- the core never produces one.
type Err_t int

const (
	// OK indicates success.
	OK Err_t = 0
	// ENOMEM is returned when the buddy allocator is out of pages at or
	// above the requested order.
	ENOMEM Err_t = -1
	// EFAULT indicates a page-table walk found no mapping, or a user
	// access faulted.
	EFAULT Err_t = -2
	// EINVAL indicates a caller passed a value violating a documented
	// precondition that the callee chooses not to treat as fatal.
	EINVAL Err_t = -3
)

func (e Err_t) Error() string {
	switch e {
	case OK:
		return "ok"
	case ENOMEM:
		return "out of memory"
	case EFAULT:
		return "bad translation"
	case EINVAL:
		return "invalid argument"
	default:
		return fmt.Sprintf("err_t(%d)", int(e))
	}
}

var printer = message.NewPrinter(language.English)

// Countf formats n using locale-aware thousands separators, for
// diagnostic printouts of page/byte counts.
func Countf(format string, n int64) string {
	return printer.Sprintf(format, n)
}

var dumpMu sync.Mutex

// Assert aborts the offending hart with a stack dump if cond is false.
// Used for invariant violations per spec.md §7: double free, refcount
// underflow, buddy-order mismatch, corrupted list, PTE in an unexpected
// state. These are never recoverable.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	Fatal(format, args...)
}

// Fatal prints a diagnostic dump and aborts the current goroutine's hart.
func Fatal(format string, args ...any) {
	dumpMu.Lock()
	defer dumpMu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "eonixcore: fatal: %s\n", msg)
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, false)
	fmt.Fprintf(os.Stderr, "%s\n", buf[:n])
	panic(msg)
}

// Logf writes an informational diagnostic; never fatal.
func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "eonixcore: "+format+"\n", args...)
}
