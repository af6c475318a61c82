// Package block owns the fixed layouts that carry parameter records.
//
// Frame layout (socket, one per direction):
//
//	[record_count:u64][record_0]...[record_{n-1}]
//
// Block layout (shared memory):
//
//	[liveness:i64][record_count:u64][record_0]...[record_{n-1}]
//
// All integers are little-endian and every record is param.RecordSize bytes,
// so record i lives at header + i*param.RecordSize. Sizes are agreed out of
// band; nothing here negotiates them.
package block
