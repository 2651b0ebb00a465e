package placeholder

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
)

// RunHook runs script as one shell command per non-empty line via
// `sh -c`, with environment INTERFACE=deviceName and
// IP_ADDR_MASK=subnet. Any command exiting non-zero aborts the
// remaining lines and is returned as an error.
func RunHook(script, deviceName, subnet string) error {
	scanner := bufio.NewScanner(strings.NewReader(script))
	env := []string{
		"INTERFACE=" + deviceName,
		"IP_ADDR_MASK=" + subnet,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd := exec.Command("sh", "-c", line)
		cmd.Env = append(cmd.Environ(), env...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("hook command %q failed: %w: %s", line, err, out)
		}
	}
	return scanner.Err()
}
