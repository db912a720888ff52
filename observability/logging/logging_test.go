package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	logger := Setup("versemarketd-test", "test", path)
	logger.Info("hello", "k", "v")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
	require.Contains(t, string(data), "versemarketd-test")
}

func TestSetupWithoutPathWritesOnlyToStdout(t *testing.T) {
	logger := Setup("versemarketd-test", "")
	require.NotNil(t, logger)
}
