// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"io/fs"
	"sync"
)

// FileReaderOption configures a FileReader.
type FileReaderOption func(*FileReader)

// IgnoreNotExist makes a missing file read as if it were empty.
func IgnoreNotExist() FileReaderOption {
	return func(r *FileReader) {
		r.optional = true
	}
}

// FileReader is an io.Reader that opens its file on the first call to Read.
type FileReader struct {
	path     string
	optional bool

	openOnce sync.Once
	openErr  error
	fs       fs.FS
	file     io.ReadCloser
}

// NewFileReader configures a FileReader for path inside fsys.
func NewFileReader(fsys fs.FS, path string, opts ...FileReaderOption) *FileReader {
	r := &FileReader{
		path: path,
		fs:   fsys,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read implements the io.Reader interface.
func (r *FileReader) Read(b []byte) (int, error) {
	r.openOnce.Do(func() {
		r.file, r.openErr = r.fs.Open(r.path)
		if r.optional && errors.Is(r.openErr, fs.ErrNotExist) {
			r.file, r.openErr = nil, io.EOF
		}
	})
	if r.openErr != nil {
		return 0, r.openErr
	}
	return r.file.Read(b)
}

// Close implements the io.Closer interface.
func (r *FileReader) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}
