package ozx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/zip"
)

const (
	eocdSignature = 0x06054b50
	eocdLen       = 22
	// offset of the comment length within the end of central directory record
	eocdCommentLen = 20
)

// stampComment sets comment as the global comment of the closed archive at
// path. Only the end of central directory record is rewritten; entries are
// left where they are.
func stampComment(path, comment string) (err error) {
	if len(comment) > math.MaxUint16 {
		return fmt.Errorf("archive comment of %d bytes exceeds %d", len(comment), math.MaxUint16)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	off, rec, err := findDirectoryEnd(f)
	if err != nil {
		return err
	}
	out := make([]byte, eocdLen+len(comment))
	copy(out, rec)
	binary.LittleEndian.PutUint16(out[eocdCommentLen:], uint16(len(comment)))
	copy(out[eocdLen:], comment)
	if _, err = f.WriteAt(out, off); err != nil {
		return err
	}
	return f.Truncate(off + int64(len(out)))
}

// findDirectoryEnd locates the end of central directory record, which is
// the last record of a zip file followed only by the archive comment
func findDirectoryEnd(f *os.File) (int64, []byte, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, nil, err
	}
	size := fi.Size()
	tail := min(size, int64(eocdLen+math.MaxUint16))
	buf := make([]byte, tail)
	if _, err := f.ReadAt(buf, size-tail); err != nil {
		return 0, nil, err
	}
	for i := len(buf) - eocdLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) != eocdSignature {
			continue
		}
		if n := int(binary.LittleEndian.Uint16(buf[i+eocdCommentLen:])); i+eocdLen+n == len(buf) {
			return size - tail + int64(i), buf[i : i+eocdLen], nil
		}
	}
	return 0, nil, errors.New("zip: end of central directory record not found")
}

// readComment returns the global comment of the archive at path without
// reading any entry
func readComment(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.Comment, nil
}
