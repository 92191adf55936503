package artefact

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoTimestamp       = errors.New("no parsable timestamp")
	ErrNoFormat          = errors.New("no supported file format")
	ErrNoArtefacts       = errors.New("no valid artefacts found")
	ErrListing           = errors.New("failed to download")
	ErrRetrieval         = errors.New("cannot get artefact")
	ErrUpload            = errors.New("could not upload")
	ErrSerialize         = errors.New("could not serialise object")
	ErrLocalFileMissing  = errors.New("cannot open local file")
)
