package kwpdf

import "errors"

// Sentinel errors returned by the library. Call sites wrap them with
// context, so compare with [errors.Is].
var (
	// ErrClosed is returned when attempting to use a closed [Capturer].
	ErrClosed = errors.New("kwpdf: capturer is closed")

	// ErrGeometry reports an unusable page geometry or overlap setting.
	// It is returned before any slicing begins.
	ErrGeometry = errors.New("kwpdf: invalid page geometry")

	// ErrMalformedImage reports a source image that is empty, cannot be
	// decoded, or has non-positive dimensions.
	ErrMalformedImage = errors.New("kwpdf: malformed source image")

	// ErrAssembly reports a failure of the PDF writer. A document that
	// returned ErrAssembly must be discarded as a whole.
	ErrAssembly = errors.New("kwpdf: document assembly failed")

	// ErrEmptyDocument is returned by [Document.Finish] when no page was added.
	ErrEmptyDocument = errors.New("kwpdf: document has no pages")

	// ErrDocumentClosed is returned when a finished [Document] is used again.
	ErrDocumentClosed = errors.New("kwpdf: document is already finished")

	// ErrInvalidRecordID reports a record identifier that is not of the
	// form CCCC/NNNNNNNN/D.
	ErrInvalidRecordID = errors.New("kwpdf: invalid record identifier")

	// ErrControlDigit reports a record identifier whose control digit does
	// not match its court code and number.
	ErrControlDigit = errors.New("kwpdf: control digit mismatch")

	// ErrNoCaptures is returned when a capture session produced no image.
	ErrNoCaptures = errors.New("kwpdf: nothing was captured")
)
