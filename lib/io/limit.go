package iolib

import "io"

// ExactReader reads exactly n bytes from r.
// If r ends early, Read returns [io.ErrUnexpectedEOF].
func ExactReader(r io.Reader, n uint64) *ExactLengthReader {
	return &ExactLengthReader{r: r, remain: n}
}

type ExactLengthReader struct {
	r      io.Reader
	remain uint64
	read   uint64
}

// Count returns how many bytes were read so far.
func (l *ExactLengthReader) Count() uint64 { return l.read }

func (l *ExactLengthReader) Read(p []byte) (n int, err error) {
	if l.remain == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > l.remain {
		p = p[:l.remain]
	}

	n, err = l.r.Read(p)
	l.remain -= uint64(n)
	l.read += uint64(n)

	if err == io.EOF && l.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
