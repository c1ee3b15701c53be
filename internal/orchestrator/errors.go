package orchestrator

import "errors"

var (
	// ErrBusy is recorded on outcomes rejected because another cycle is in flight.
	ErrBusy = errors.New("generation already in progress")

	// ErrMissingDependency is returned by NewSession when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("missing session dependency")

	// ErrAttachmentIndex is returned when removing an attachment that does not exist.
	ErrAttachmentIndex = errors.New("attachment index out of range")

	// ErrNoAttachments is returned when AddAttachments receives no files.
	ErrNoAttachments = errors.New("no files provided")
)
