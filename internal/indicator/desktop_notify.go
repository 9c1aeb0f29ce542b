package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyObject = "/org/freedesktop/Notifications"
)

// busctlFunc runs `busctl --user call` with args and returns its combined output.
type busctlFunc func(ctx context.Context, args ...string) ([]byte, error)

func runBusctl(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"--user", "call", notifyDest, notifyObject, notifyDest}, args...)
	return exec.CommandContext(ctx, "busctl", full...).CombinedOutput()
}

// showNotification posts summary, replacing the notification replaceID when
// it is non-zero, and returns the ID the server assigned.
func showNotification(ctx context.Context, call busctlFunc, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	out, err := call(ctx,
		"Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"", // icon
		summary,
		"", // body
		"0", // no actions
		"0", // no hints
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, busctlError("show notification", err, out)
	}

	// busctl prints the reply as `u <id>`.
	fields := strings.Fields(string(out))
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("show notification: unexpected reply %q", strings.TrimSpace(string(out)))
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("show notification: parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

func closeNotification(ctx context.Context, call busctlFunc, id uint32) error {
	out, err := call(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return busctlError("close notification", err, out)
	}
	return nil
}

func busctlError(op string, err error, out []byte) error {
	if msg := strings.TrimSpace(string(out)); msg != "" {
		return fmt.Errorf("%s: %w (%s)", op, err, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
