package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiableRange is returned for ranges outside the object.
var ErrUnsatisfiableRange = errors.New("range not satisfiable")

// ByteRange is an inclusive byte interval of an object.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for an object of size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a single "bytes=" range against an object of size.
// An open end reads to the last byte and an end past the object is clamped.
// "bytes=-N" selects the last N bytes. Multiple ranges are not supported.
func ParseRange(header string, size int64) (ByteRange, error) {
	set, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(set, ",") {
		return ByteRange{}, ErrUnsatisfiableRange
	}

	startStr, endStr, ok := strings.Cut(set, "-")
	if !ok {
		return ByteRange{}, ErrUnsatisfiableRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return ByteRange{}, ErrUnsatisfiableRange
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return ByteRange{}, ErrUnsatisfiableRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, ErrUnsatisfiableRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return ByteRange{Start: start, End: end}, nil
}
