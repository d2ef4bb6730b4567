// Package preflight provides readiness checks for the filesystem paths,
// the fingerprint database and the media tools trustframe depends on.
//
// The CLI "trustframe doctor" command renders every check. The analyze
// command calls CheckSystemDeps before probing any file so a missing ffmpeg
// fails fast with a clear message instead of an opaque exec error.
package preflight
