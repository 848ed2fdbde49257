package p2p

import (
	"io"
	"os"
	"path/filepath"
)

// createStagingFile creates a temp file next to name so the final rename
// is same-filesystem. The cache directory this download used shares
// name's path, so the real output file cannot be created until that
// directory is gone.
func createStagingFile(name string) (*os.File, error) {
	dir := filepath.Dir(name)
	if dir == "" {
		dir = "."
	}
	return os.CreateTemp(dir, ".gopiece-concat-*")
}

func copyAndClose(dst io.Writer, src *os.File) (int64, error) {
	defer src.Close()
	return io.Copy(dst, src)
}
