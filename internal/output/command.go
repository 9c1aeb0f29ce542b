// Package output renders assistant responses: spoken text and opened URLs.
package output

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// fillPlaceholder substitutes value for every occurrence of placeholder in
// argv. It reports false, with argv copied unchanged, when none occurs.
func fillPlaceholder(argv []string, placeholder string, value string) ([]string, bool) {
	filled := make([]string, len(argv))
	found := false
	for i, arg := range argv {
		if strings.Contains(arg, placeholder) {
			arg = strings.ReplaceAll(arg, placeholder, value)
			found = true
		}
		filled[i] = arg
	}
	return filled, found
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	_, err := runCommand(ctx, argv, input, false)
	return err
}

// runCommandOutput executes argv with input on stdin and returns stdout.
func runCommandOutput(ctx context.Context, argv []string, input string) ([]byte, error) {
	return runCommand(ctx, argv, input, true)
}

func runCommand(ctx context.Context, argv []string, input string, captureStdout bool) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	if captureStdout {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return nil, fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("wait for %s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return stdout.Bytes(), nil
}
