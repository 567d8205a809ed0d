package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/eternalApril/lunakv/internal/storage"
	"go.uber.org/zap"
)

const rdbHeader = "LUNAKV01"

// ErrIncompatibleSnapshot is returned by Load when the file was not written by Save
var ErrIncompatibleSnapshot = errors.New("incompatible RDB snapshot")

// RDB saves and loads point-in-time snapshots of a storage primitive.
// Expiration records are ordinary rows and travel with the snapshot
type RDB struct {
	filename string
	logger   *zap.Logger
}

// NewRDB returns an RDB bound to filename
func NewRDB(filename string, logger *zap.Logger) *RDB {
	return &RDB{
		filename: filename,
		logger:   logger.With(zap.String("rdb", filename)),
	}
}

// Save writes the snapshot to a temporary file in the same directory which then
// replaces the previous snapshot, so readers never see a partial file
func (r *RDB) Save(db storage.Snapshotter) (err error) {
	start := time.Now()

	f, err := os.CreateTemp(filepath.Dir(r.filename), filepath.Base(r.filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create RDB temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()           //nolint:errcheck
			os.Remove(f.Name()) //nolint:errcheck
		}
	}()

	counter := &countingWriter{w: f}
	writer := bufio.NewWriterSize(counter, 4*1024*1024)

	if _, err = writer.WriteString(rdbHeader); err != nil {
		return err
	}
	if err = db.Snapshot(writer); err != nil {
		return fmt.Errorf("snapshot storage: %w", err)
	}
	if err = writer.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(f.Name(), r.filename); err != nil {
		return err
	}

	r.logger.Info("RDB saved",
		zap.Int64("bytes", counter.n),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Load restores the snapshot into db. A missing file is not an error
func (r *RDB) Load(db storage.Snapshotter) error {
	f, err := os.Open(r.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close() //nolint:errcheck

	reader := bufio.NewReader(f)

	header := make([]byte, len(rdbHeader))
	if _, err := io.ReadFull(reader, header); err != nil {
		return fmt.Errorf("%w: short header", ErrIncompatibleSnapshot)
	}
	if string(header) != rdbHeader {
		return fmt.Errorf("%w: header %q", ErrIncompatibleSnapshot, header)
	}

	start := time.Now()
	if err := db.Restore(reader); err != nil {
		return fmt.Errorf("restore storage: %w", err)
	}

	r.logger.Info("RDB loaded", zap.Duration("duration", time.Since(start)))
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
