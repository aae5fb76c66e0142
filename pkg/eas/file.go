package eas

import (
	"errors"
	"io"
)

// File is an open file as seen by the engine. Engines either read it through
// ReadAt and Size, or broker access to Handle themselves.
type File struct {
	Name   string
	Handle io.ReadSeeker
}

// NewFile wraps an open, seekable handle.
func NewFile(name string, handle io.ReadSeeker) *File {
	return &File{Name: name, Handle: handle}
}

// ReadAt reads len(p) bytes starting at off from the beginning of the file.
// A failed seek reads nothing. A read that hits the end of the file returns
// the bytes available together with io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f == nil || f.Handle == nil {
		return 0, errors.New("file not open")
	}
	if _, err := f.Handle.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(f.Handle, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// Size seeks to the end of the file and returns the resulting position.
func (f *File) Size() (int64, error) {
	if f == nil || f.Handle == nil {
		return -1, errors.New("file not open")
	}
	n, err := f.Handle.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, err
	}
	return n, nil
}

// Section returns a reader over the whole file backed by ReadAt.
func (f *File) Section() (*io.SectionReader, error) {
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(f, 0, size), nil
}
