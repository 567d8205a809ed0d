package persistence

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eternalApril/lunakv/internal/resp"
	"go.uber.org/zap"
)

// Replay decodes the log from the start and hands every command to apply.
// A missing file is a fresh start. A command cut off at the end of the file, as left
// by a crash mid-write, is skipped with a warning, and so are values that are not
// commands. Returns the number of commands applied
func (a *AOF) Replay(apply func(name string, args []resp.Value)) (int, error) {
	file, err := os.Open(a.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open AOF: %w", err)
	}
	defer file.Close() //nolint:errcheck

	dec := resp.NewDecoder(file)
	applied := 0

	for {
		val, err := dec.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			a.logger.Warn("AOF ends with a truncated command, ignoring it", zap.Int("applied", applied))
			break
		}
		if err != nil {
			return applied, fmt.Errorf("decode AOF after %d commands: %w", applied, err)
		}

		name, args, ok := val.Command()
		if !ok {
			a.logger.Warn("AOF entry is not a command, skipping", zap.Int("applied", applied))
			continue
		}

		apply(name, args)
		applied++
	}

	return applied, nil
}
