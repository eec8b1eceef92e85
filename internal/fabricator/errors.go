package fabricator

import "errors"

// Fabrication errors. Wrap them with fmt.Errorf("...: %w") and test with
// errors.Is.
var (
	// ErrContentNotFound means a referenced program, instrument or
	// sub-entity is absent from the content library.
	ErrContentNotFound = errors.New("content not found")

	// ErrNoValidChoice means no candidate passed the filters for an
	// optional layer. The stage omits the layer and carries on.
	ErrNoValidChoice = errors.New("no valid choice")

	// ErrInvalidContinuity means the previous segment no longer resolves
	// against the content library.
	ErrInvalidContinuity = errors.New("invalid continuity")

	// ErrMalformedInput means the segment or an entity put on the
	// workbench is out of its valid range.
	ErrMalformedInput = errors.New("malformed input")
)

// IsFatal reports whether err must abort the whole segment.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrNoValidChoice)
}
