package dataref

import (
	"io"
	"os"
)

const (
	methodCopyFileRange = "copy_file_range"
	methodBuffered      = "buffered"

	// Upper bound on one transfer call.
	maxTransfer = 1 << 30

	// Upper bound on the staging buffer of a buffered transfer.
	maxBuffered = 1 << 20
)

// copyFile copies n bytes at srcOff in src to dstOff in dst,
// calling TransferTo until everything has moved.
// Bounds must already have been checked.
func copyFile(src *FileHandle, srcOff, n int64, dst *FileHandle, dstOff int64) error {
	if n == 0 {
		return nil
	}
	if overlaps(src, srcOff, dst, dstOff, n) {
		return copyStaged(src, srcOff, n, dst, dstOff)
	}

	var stalls int
	for n > 0 {
		m, err := src.TransferTo(srcOff, n, dst, dstOff)
		if err != nil {
			return err
		}
		if m < n {
			shortTransfers.Inc()
		}
		if m == 0 {
			stalls++
			if stalls >= src.retryLimit {
				return ioErr(ErrShortTransfer, "copying %s at %d to %s at %d: %d bytes left after %d attempts", src.path, srcOff, dst.path, dstOff, n, stalls)
			}
			continue
		}
		stalls = 0
		srcOff += m
		dstOff += m
		n -= m
	}
	return nil
}

// overlaps tells whether the source and destination ranges
// are in the same file and intersect.
// The kernel refuses such transfers,
// and a chunked copy would clobber unread source bytes.
func overlaps(src *FileHandle, srcOff int64, dst *FileHandle, dstOff int64, n int64) bool {
	if src != dst && !os.SameFile(src.info, dst.info) {
		return false
	}
	return srcOff < dstOff+n && dstOff < srcOff+n
}

// copyStaged copies an overlapping range through a bounded buffer.
// Pieces go back to front when the destination is past the source,
// front to back otherwise,
// so no source byte is overwritten before it is read.
func copyStaged(src *FileHandle, srcOff, n int64, dst *FileHandle, dstOff int64) error {
	buf := make([]byte, min(n, maxBuffered))
	backward := dstOff > srcOff

	for done := int64(0); done < n; {
		m := min(int64(len(buf)), n-done)
		pos := done
		if backward {
			pos = n - done - m
		}
		if _, err := src.readAt(buf[:m], srcOff+pos); err != nil {
			return err
		}
		if _, err := dst.writeAt(buf[:m], dstOff+pos); err != nil {
			return err
		}
		bytesTransferred.WithLabelValues(methodBuffered).Add(float64(m))
		done += m
	}
	return nil
}

// bufferedTransfer is the portable transfer:
// one positional read into a bounded buffer
// followed by one positional write.
func bufferedTransfer(src *os.File, srcOff int64, dst *os.File, dstOff int64, n int64) (int64, string, error) {
	buf := make([]byte, min(n, maxBuffered))
	m, err := src.ReadAt(buf, srcOff)
	if err != nil && err != io.EOF {
		return 0, methodBuffered, err
	}
	if m == 0 {
		return 0, methodBuffered, nil
	}
	w, err := dst.WriteAt(buf[:m], dstOff)
	return int64(w), methodBuffered, err
}
