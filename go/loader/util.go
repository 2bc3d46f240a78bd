package loader

import (
	"io"
	"io/ioutil"
)

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 4)
	n, _ := r.ReadAt(ret, 0)
	return ret[:n]
}

// readAt reads exactly size bytes at off. A short read returns
// io.ErrUnexpectedEOF; other read errors are passed through. The buffer
// grows with what the source actually holds, not with size.
func readAt(r io.ReaderAt, off int64, size uint64) ([]byte, error) {
	p, err := ioutil.ReadAll(io.NewSectionReader(r, off, int64(size)))
	if err != nil {
		return p, err
	}
	if uint64(len(p)) != size {
		return p, io.ErrUnexpectedEOF
	}
	return p, nil
}
