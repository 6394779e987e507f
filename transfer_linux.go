//go:build linux

package dataref

import (
	"os"

	"golang.org/x/sys/unix"
)

// transfer moves up to n bytes with copy_file_range,
// falling back to a buffered transfer
// when the kernel or file system cannot do it.
func transfer(src *os.File, srcOff int64, dst *os.File, dstOff int64, n int64) (int64, string, error) {
	if n > maxTransfer {
		n = maxTransfer
	}
	roff, woff := srcOff, dstOff
	m, err := unix.CopyFileRange(int(src.Fd()), &roff, int(dst.Fd()), &woff, int(n), 0)
	switch err {
	case nil:
		return int64(m), methodCopyFileRange, nil

	case unix.EXDEV, unix.ENOSYS, unix.EOPNOTSUPP, unix.EINVAL:
		return bufferedTransfer(src, srcOff, dst, dstOff, n)
	}
	return 0, methodCopyFileRange, err
}
