// Package dataref provides byte-addressable data references.
//
// A reference,
// or _ref_,
// is a range of bytes that can be read,
// written,
// copied
// and split into chunks
// without the caller knowing where the bytes live.
// Two kinds of storage are supported:
// memory buffers (ByteSlice)
// and regions of on-disk files (FileHandle for a whole file,
// FileWindow for a sub-range of one).
//
// Memory-backed refs are plain views of a byte slice.
// Slicing them never copies.
//
// File-backed refs share an open file through a FileHandle,
// which counts its owners.
// Anyone who keeps a ref beyond the call that produced it
// must Retain it,
// and must Release it when done.
// When the last owner releases the handle,
// the file is closed,
// and removed if it was marked for deletion.
// Breaking that protocol
// (releasing too often, or using a handle after its final release)
// is a programming error and panics with a *UseAfterReleaseError.
//
// Copying between two file-backed refs uses the operating system's
// file-to-file transfer
// (copy_file_range on Linux)
// so the bytes never pass through a user-space buffer.
//
// Large refs can be split into bounded chunks with Split,
// which yields independently owned sub-refs on demand.
// This is meant for streaming a large record over a size-limited channel.
//
// Refs do no locking of their own.
// Concurrent writers to overlapping ranges must coordinate elsewhere.
package dataref
