package bytesutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrLimitExceeded = errors.New("delimiter not found within limit")

// ReadUntil reads from r until delim. The output will include delim.
func ReadUntil(r *bufio.Reader, delim []byte) ([]byte, error) {
	return ReadUntilLimit(r, delim, 0)
}

// ReadUntilLimit is [ReadUntil] that gives up with [ErrLimitExceeded]
// once more than limit bytes were read without finding delim.
// Zero limit means no limit.
func ReadUntilLimit(r *bufio.Reader, delim []byte, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	for {
		b, err := r.ReadBytes((delim[len(delim)-1]))
		buf.Write(b)
		if err != nil {
			if err == io.EOF {
				if buf.Len() == 0 {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if bytes.HasSuffix(buf.Bytes(), delim) {
			return buf.Bytes(), nil
		}

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrLimitExceeded
		}
	}
}
