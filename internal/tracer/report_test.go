package tracer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport_DedupsAndTrimsRoot(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "boxxy-report.txt")
	root := "/tmp/boxxy-containers/bold-snow-1234"

	events := []Syscall{
		{Name: "openat", Path: root + "/etc/hostname"},
		{Name: "openat", Path: root + "/etc/hostname"},
		{Name: "stat", Path: root + "/etc/passwd"},
		{Name: "read", Path: ""},
	}

	require.NoError(t, WriteReport(reportPath, root, events))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	assert.Equal(t, "/etc/hostname\n/etc/passwd\n# total: 2\n", string(data))
}

func TestWriteReport_Empty(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "boxxy-report.txt")

	require.NoError(t, WriteReport(reportPath, "/tmp/x", nil))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "# total: 0\n", string(data))
}
