// Package shm maps a block.Raw into a named file-backed shared memory
// segment so several processes can read and write the same records.
//
// A segment is created by the first Attach for a name and reused by every
// later one. Detach releases this process's mapping only; the segment file
// lives until its owner calls Unlink.
//
// Nothing locks the shared bytes between processes, including the liveness
// counter. Creation is not atomic either: the creator makes the file with
// O_EXCL, then truncates it to size, then zeroes the mapping. A process that
// attaches before the truncate sees ErrSizeMismatch and may retry. A process
// that maps the file before the creator zeroes it loses its liveness
// increment.
package shm
