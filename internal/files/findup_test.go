package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(root, "a", "js9msg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: x\n"), 0o600))

	assert.Equal(t, path, FindUp("js9msg.yaml", nested))
	assert.Equal(t, path, FindUp("js9msg.yaml", filepath.Join(root, "a")))
	assert.Equal(t, "", FindUp("absent-file-with-an-unlikely-name.yaml", nested))
}
