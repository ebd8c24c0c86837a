// Package checkpoint provides durable partial-progress state for scrape runs.
//
// A checkpoint records which work items finished and the store records
// accumulated so far. The orchestrator saves it every K processed items and
// once more, forced, at run completion; a resumed run loads it and skips
// everything in the completed set. At most (checkpoint interval - 1) items of
// progress can be lost to an abrupt termination.
//
// Files are written atomically (temp file, fsync, rename) so a crash
// mid-write cannot corrupt them. A missing or corrupt checkpoint degrades to
// a fresh run with a logged warning; it is never fatal.
package checkpoint
