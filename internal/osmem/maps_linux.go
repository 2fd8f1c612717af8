//go:build linux

package osmem

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// mapsCursor enumerates /proc/<pid>/maps. The cookie is the reader position;
// the current line is its raw mapping record.
type mapsCursor struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	origin  uintptr
	err     error
	done    bool

	closeOnce sync.Once
	closeErr  error
}

func newMapsCursor(rc io.ReadCloser, origin uintptr) *mapsCursor {
	return &mapsCursor{
		rc:      rc,
		scanner: bufio.NewScanner(rc),
		origin:  origin,
	}
}

func (c *mapsCursor) Next(info *AreaInfo) bool {
	if c.done {
		return false
	}
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if line == "" {
			continue
		}
		parsed, err := parseMapsLine(line)
		if err != nil {
			c.fail(err)
			return false
		}
		if parsed.End() <= c.origin {
			continue
		}
		*info = parsed
		return true
	}
	if err := c.scanner.Err(); err != nil {
		c.fail(opError("read "+mapsPath, nil, err))
		return false
	}
	c.done = true
	_ = c.Close()
	return false
}

func (c *mapsCursor) Err() error {
	return c.err
}

func (c *mapsCursor) Close() error {
	c.closeOnce.Do(func() {
		c.done = true
		c.closeErr = c.rc.Close()
	})
	return c.closeErr
}

func (c *mapsCursor) fail(err error) {
	c.err = err
	c.done = true
	_ = c.Close()
}

// parseMapsLine parses one line of /proc/<pid>/maps:
//
//	7f2c4c000000-7f2c4c021000 rw-p 00000000 00:00 0    [heap]
func parseMapsLine(line string) (AreaInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return AreaInfo{}, fmt.Errorf("osmem: malformed maps line %q", line)
	}

	lo, hi, ok := strings.Cut(fields[0], "-")
	if !ok {
		return AreaInfo{}, fmt.Errorf("osmem: malformed maps range %q", fields[0])
	}
	start, err := strconv.ParseUint(lo, 16, 64)
	if err != nil {
		return AreaInfo{}, fmt.Errorf("osmem: malformed maps start %q: %w", lo, err)
	}
	end, err := strconv.ParseUint(hi, 16, 64)
	if err != nil {
		return AreaInfo{}, fmt.Errorf("osmem: malformed maps end %q: %w", hi, err)
	}
	if end < start {
		return AreaInfo{}, fmt.Errorf("osmem: inverted maps range %q", fields[0])
	}

	perms := fields[1]
	if len(perms) != 4 {
		return AreaInfo{}, fmt.Errorf("osmem: malformed maps permissions %q", perms)
	}

	var prot Native
	if perms[0] == 'r' {
		prot |= unix.PROT_READ
	}
	if perms[1] == 'w' {
		prot |= unix.PROT_WRITE
	}
	if perms[2] == 'x' {
		prot |= unix.PROT_EXEC
	}

	return AreaInfo{
		Base:      uintptr(start),
		Size:      uintptr(end - start),
		Prot:      prot,
		Shared:    perms[3] == 's',
		Committed: true,
	}, nil
}
