package domain

// EntryKind identifies what kind of filesystem entry a path refers to.
// The string values double as the "file"/"directory" desired values the
// Existence state accepts.
type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
	EntryLink      EntryKind = "link"
)

// IsValid checks if the entry kind is a known value
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryFile, EntryDirectory, EntryLink:
		return true
	}
	return false
}

// StateKind identifies one managed attribute of a resource. The numeric
// order is the dependency order syncs run in: the inode has to exist
// before ownership, group, permission or content can be applied to it.
type StateKind int

const (
	KindExistence StateKind = iota
	KindOwner
	KindGroup
	KindMode
	KindSource
	KindChecksum
	KindType
)

// SyncOrder lists every state kind in the order sync must visit them.
var SyncOrder = []StateKind{
	KindExistence, KindOwner, KindGroup, KindMode, KindSource, KindChecksum, KindType,
}

// String returns the attribute name used in configuration and logs
func (k StateKind) String() string {
	switch k {
	case KindExistence:
		return "ensure"
	case KindOwner:
		return "owner"
	case KindGroup:
		return "group"
	case KindMode:
		return "mode"
	case KindSource:
		return "source"
	case KindChecksum:
		return "checksum"
	case KindType:
		return "type"
	default:
		return "unknown"
	}
}

// CheckType is the content-fingerprinting strategy for the Checksum state
type CheckType string

const (
	// ChecksumMD5 hashes the full file content (default)
	ChecksumMD5 CheckType = "md5"

	// ChecksumMD5Lite hashes only the first 512 bytes
	ChecksumMD5Lite CheckType = "md5lite"

	// ChecksumMTime stringifies the modification timestamp
	ChecksumMTime CheckType = "mtime"

	// ChecksumCTime stringifies the inode change timestamp
	ChecksumCTime CheckType = "ctime"
)

// IsValid checks if the check type is a known value
func (c CheckType) IsValid() bool {
	switch c {
	case ChecksumMD5, ChecksumMD5Lite, ChecksumMTime, ChecksumCTime:
		return true
	}
	return false
}
