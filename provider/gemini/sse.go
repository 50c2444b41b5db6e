package gemini

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize caps a single SSE line at 1 MB. The default bufio.Scanner
// limit is 64 KiB, which is too small for long completions in one event.
const maxSSELineSize = 1 * 1024 * 1024

// sseScanner reads Server-Sent Events data payloads from a reader. It joins
// multi-line data fields, skips comments and blank lines, and ignores the
// other SSE fields (event:, id:, retry:).
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// Next returns the next data payload, or io.EOF when the stream is done.
func (s *sseScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// blank line ends an event; flush accumulated data
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse read: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
