package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

const hashChunkSize = 4096

// HashFile returns the hex SHA-256 digest of the file at path. The file is
// streamed in fixed-size chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &IOError{Op: "read", Path: path, Err: err}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
