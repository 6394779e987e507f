//go:build !linux

package dataref

import "os"

func transfer(src *os.File, srcOff int64, dst *os.File, dstOff int64, n int64) (int64, string, error) {
	return bufferedTransfer(src, srcOff, dst, dstOff, n)
}
