package zarr

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// ZipStore keeps a whole hierarchy inside one zip archive. Opened for
// writing it is append-only: each key may be Put once, in any order, and
// nothing can be read back until the archive is closed and reopened with
// ModeRead. Entries are stored uncompressed; chunk data is already encoded
// by the array's codecs.
type ZipStore struct {
	lk   sync.Mutex
	path string
	mode PersistenceMode

	// write mode
	f       *os.File
	zw      *zip.Writer
	written map[string]struct{}

	// read mode
	rc    *zip.ReadCloser
	files map[string]*zip.File
	keys  []string

	closed bool
}

var _ Store = (*ZipStore)(nil)

// OpenZipStore opens the archive at path. Supported modes are ModeRead,
// ModeWrite (truncate) and ModeWriteFail (must not exist).
func OpenZipStore(path string, mode PersistenceMode) (*ZipStore, error) {
	s := &ZipStore{path: path, mode: mode}
	switch mode {
	case ModeRead:
		rc, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		s.rc = rc
		s.files = make(map[string]*zip.File, len(rc.File))
		for _, f := range rc.File {
			s.files[f.Name] = f
			s.keys = append(s.keys, f.Name)
		}
		sort.Strings(s.keys)
	case ModeWrite, ModeWriteFail:
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if mode == ModeWriteFail {
			flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		}
		f, err := os.OpenFile(path, flag, 0644)
		if err != nil {
			return nil, err
		}
		s.f = f
		s.zw = zip.NewWriter(f)
		s.written = map[string]struct{}{}
	default:
		return nil, fmt.Errorf("%w: zip store mode %q", ErrUnsupported, mode)
	}
	return s, nil
}

func (s *ZipStore) Type() string { return ZipStoreType }

// Path is the archive's location on disk
func (s *ZipStore) Path() string { return s.path }

// Comment returns the archive comment of a store opened with ModeRead
func (s *ZipStore) Comment() string {
	if s.rc == nil {
		return ""
	}
	return s.rc.Comment
}

func (s *ZipStore) Get(key string) (io.ReadCloser, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.closed {
		return nil, os.ErrClosed
	}
	if s.rc == nil {
		return nil, fmt.Errorf("%w: get %s", ErrWriteOnly, key)
	}
	f, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotfound, key)
	}
	return f.Open()
}

func (s *ZipStore) Put(key string, val io.Reader) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	if s.zw == nil {
		return fmt.Errorf("%w: put %s", ErrReadOnly, key)
	}
	if _, ok := s.written[key]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:     key,
		Method:   zip.Store,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, val); err != nil {
		return err
	}
	s.written[key] = struct{}{}
	return nil
}

func (s *ZipStore) ListDir(prefix string) ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.closed {
		return nil, os.ErrClosed
	}
	keys := s.keys
	if s.written != nil {
		keys = make([]string, 0, len(s.written))
		for k := range s.written {
			keys = append(keys, k)
		}
	}
	return listDirKeys(keys, prefix), nil
}

// Close flushes the central directory in write mode and releases the file.
// Calling Close more than once is a no-op.
func (s *ZipStore) Close() error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.rc != nil {
		return s.rc.Close()
	}
	err := s.zw.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
