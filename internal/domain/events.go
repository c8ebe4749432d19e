package domain

// Event names a completed state transition, emitted once per successful
// convergence to the notification collaborator
type Event string

const (
	// EventNone means the sync completed without an observable transition
	EventNone Event = ""

	// EventFileCreated is emitted when Existence creates a file
	EventFileCreated Event = "file_created"

	// EventDirectoryCreated is emitted when Existence creates a directory
	EventDirectoryCreated Event = "directory_created"

	// EventFileModified is emitted when Checksum detects drift against
	// the persisted value from an earlier run
	EventFileModified Event = "file_modified"

	// EventInodeChanged is emitted when Owner, Group or Mode converge
	EventInodeChanged Event = "inode_changed"

	// EventFileChanged is emitted when Source replaces file content
	EventFileChanged Event = "file_changed"
)
