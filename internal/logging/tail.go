package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// TailActivity writes the last n lines of the activity log at path to
// w. When n is zero the whole file is written. When follow is set it
// keeps copying appended lines until ctx is cancelled.
func TailActivity(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := seekLastLines(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if _, err := io.Copy(w, file); err != nil {
		return err
	}

	if follow {
		return followAppends(ctx, w, file)
	}
	return nil
}

// seekLastLines positions file so that reading to EOF yields the last
// n lines. It scans backwards in chunks counting newlines.
func seekLastLines(file *os.File, n int) error {
	const chunk = 8192

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	var (
		offset = stat.Size()
		found  int
		buf    = make([]byte, chunk)
	)
	for offset > 0 {
		readFrom := offset - chunk
		if readFrom < 0 {
			readFrom = 0
		}
		m, err := file.ReadAt(buf[:offset-readFrom], readFrom)
		if err != nil && err != io.EOF {
			return err
		}
		for i := m - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			found++
			// The final newline terminates the last line, so the
			// n-th line starts after newline n+1 from the end.
			if found > n {
				_, err := file.Seek(readFrom+int64(i)+1, io.SeekStart)
				return err
			}
		}
		offset = readFrom
	}

	// Fewer than n lines in the file, show all of them.
	_, err = file.Seek(0, io.SeekStart)
	return err
}

// followAppends copies lines appended to file until ctx is cancelled.
func followAppends(ctx context.Context, w io.Writer, file *os.File) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := io.Copy(w, file); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
