package placeholder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunHookExecutesEachLineWithEnv(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	script := "echo -n \"$INTERFACE:$IP_ADDR_MASK\" > " + marker

	err := RunHook(script, "ph0", "10.0.1.0/24")
	require.NoError(t, err)

	out, err := os.ReadFile(marker)
	require.NoError(t, err)
	require.Equal(t, "ph0:10.0.1.0/24", string(out))
}

func TestRunHookIgnoresBlankLines(t *testing.T) {
	err := RunHook("\n\n   \n", "ph0", "10.0.1.0/24")
	require.NoError(t, err)
}

func TestRunHookAbortsOnNonZeroExit(t *testing.T) {
	err := RunHook("exit 1", "ph0", "10.0.1.0/24")
	require.Error(t, err)
}

func TestRunHookStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	script := "exit 1\ntouch " + marker

	err := RunHook(script, "ph0", "10.0.1.0/24")
	require.Error(t, err)
	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr))
}
