package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Ning0612/Filestate/internal/domain"
)

// liteBytes is how much of a file the md5lite strategy reads
const liteBytes = 512

// emptyValue is recorded for zero-length content instead of a real
// digest. Legacy behavior: consumers compare against the literal "0".
const emptyValue = "0"

// File computes the fingerprint of the file at path using the given
// check type. md5 hashes the full content, md5lite only the first 512
// bytes, mtime and ctime stringify the corresponding timestamp.
func File(path string, ctype domain.CheckType) (string, error) {
	switch ctype {
	case domain.ChecksumMD5:
		return hashFile(path, 0)
	case domain.ChecksumMD5Lite:
		return hashFile(path, liteBytes)
	case domain.ChecksumMTime:
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		return info.ModTime().String(), nil
	case domain.ChecksumCTime:
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			return "", &os.PathError{Op: "stat", Path: path, Err: err}
		}
		return time.Unix(st.Ctim.Unix()).String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported checksum type: %s", domain.ErrValidation, ctype)
	}
}

// Bytes computes the md5 fingerprint of in-memory content, with the
// same empty-content special case as File
func Bytes(data []byte) string {
	if len(data) == 0 {
		return emptyValue
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// hashFile streams up to limit bytes (0 = unlimited) through md5
func hashFile(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var reader io.Reader = f
	if limit > 0 {
		reader = io.LimitReader(f, limit)
	}

	h := md5.New()
	n, err := io.Copy(h, reader)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if n == 0 {
		return emptyValue, nil
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
