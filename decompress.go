package models

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// decompressor wraps a reader with the decoder for the given compression.
// For CompressionNone the reader is returned unchanged. The returned closer
// is nil unless the decoder holds resources of its own.
func decompressor(r io.Reader, compression Compression) (io.Reader, io.Closer, error) {
	switch compression {
	case CompressionNone:
		return r, nil, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), nil, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		return zr, zr, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported compression %q", ErrDecompressionFailed, compression)
	}
}

// decompressFile decodes the compressed payload at srcPath into dstPath.
// The destination is written via a temp file and renamed into place so a
// failed decode never leaves a truncated artifact behind. Returns the number
// of decompressed bytes written.
func decompressFile(srcPath, dstPath string, compression Compression) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrStorageError, srcPath, err)
	}
	defer src.Close()

	reader, closer, err := decompressor(src, compression)
	if err != nil {
		return 0, err
	}
	if closer != nil {
		defer closer.Close()
	}

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", ErrStorageError, tmp, err)
	}

	written, err := io.Copy(dst, reader)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}

	if err := os.Rename(tmp, dstPath); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: rename %s: %v", ErrStorageError, tmp, err)
	}

	return written, nil
}
