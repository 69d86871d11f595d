package scan

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// hashChunkSize is the read buffer for hashing (8 KiB).
const hashChunkSize = 8 * 1024

// FileHash streams the file through xxHash64 and returns the digest as 16
// lowercase hex digits. The hash is the dedup identity of a file: bytes, not
// name or location.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("scan: opening %s: %w", path, err)
	}
	defer f.Close()

	d := xxhash.New()
	buf := make([]byte, hashChunkSize)

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			_, _ = d.Write(buf[:n]) //nolint:errcheck // xxhash.Write never fails
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return "", fmt.Errorf("scan: reading %s: %w", path, readErr)
		}
	}

	return fmt.Sprintf("%016x", d.Sum64()), nil
}

// PathHash returns the xxHash64 of the path string itself, formatted like a
// content hash. Used as the ledger identity for files whose bytes could not
// be read, so the failure row still has a unique, stable key.
func PathHash(path string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(path))
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
