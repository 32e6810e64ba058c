package wal

import (
	"fmt"
	"io"
	"os"
)

// readChunk is how many bytes ReadLastRecord pulls per backward step.
const readChunk = 512

// ReadLastRecord decodes the last complete line of a log file.
//
// The file is read backwards from its end, so the cost does not grow with
// the length of the log. A single trailing "\n", "\r\n" or "\r" is
// skipped.
// Empty files and undecodable lines yield ErrNoRecord.
func ReadLastRecord(walFile string) (Record, error) {
	line, err := lastLine(walFile)
	if err != nil {
		return Record{}, err
	}
	return ParseRecord(line)
}

func lastLine(walFile string) (string, error) {
	f, err := os.Open(walFile)
	if err != nil {
		return "", fmt.Errorf("open wal %s: %w", walFile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat wal %s: %w", walFile, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrNoRecord, walFile)
	}

	end := info.Size()
	one := make([]byte, 1)
	if _, err := f.ReadAt(one, end-1); err != nil {
		return "", fmt.Errorf("read wal %s: %w", walFile, err)
	}
	if one[0] == '\n' {
		end--
		if end > 0 {
			if _, err := f.ReadAt(one, end-1); err != nil {
				return "", fmt.Errorf("read wal %s: %w", walFile, err)
			}
			if one[0] == '\r' {
				end--
			}
		}
	} else if one[0] == '\r' {
		end--
	}

	// Walk back chunk by chunk until a terminator or the start of file.
	var line []byte
	pos := end
	buf := make([]byte, readChunk)
	for pos > 0 {
		n := int64(readChunk)
		if pos < n {
			n = pos
		}
		pos -= n
		chunk := buf[:n]
		if _, err := f.ReadAt(chunk, pos); err != nil && err != io.EOF {
			return "", fmt.Errorf("read wal %s: %w", walFile, err)
		}

		cut := -1
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] == '\n' || chunk[i] == '\r' {
				cut = i
				break
			}
		}
		if cut >= 0 {
			line = append(append([]byte{}, chunk[cut+1:]...), line...)
			break
		}
		line = append(append([]byte{}, chunk...), line...)
	}

	if len(line) == 0 {
		return "", fmt.Errorf("%w: %s ends with an empty line", ErrNoRecord, walFile)
	}
	return string(line), nil
}
