package fits

import (
	"errors"
	"fmt"
)

// IssueKind classifies a problem found while reading or verifying a file.
type IssueKind uint8

const (
	IssueMalformedCard IssueKind = iota
	IssueUnknownTypeCode
	IssueSizeMismatch
	IssueTypeMismatch
	IssueHeapBounds
	IssueChecksumMismatch
	IssueMissingEnd
)

func (k IssueKind) String() string {
	switch k {
	case IssueMalformedCard:
		return "malformed-card"
	case IssueUnknownTypeCode:
		return "unknown-type-code"
	case IssueSizeMismatch:
		return "size-mismatch"
	case IssueTypeMismatch:
		return "type-mismatch"
	case IssueHeapBounds:
		return "heap-bounds"
	case IssueChecksumMismatch:
		return "checksum-mismatch"
	case IssueMissingEnd:
		return "missing-end"
	default:
		return "unknown"
	}
}

// Issue is a recoverable problem tied to one unit (0 is the primary).
type Issue struct {
	Unit int
	Kind IssueKind
	Err  error
}

func (i Issue) Error() string {
	return fmt.Sprintf("unit %d: %s: %v", i.Unit, i.Kind, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

func newIssue(unit int, err error) Issue {
	return Issue{Unit: unit, Kind: classify(err), Err: err}
}

func classify(err error) IssueKind {
	switch {
	case errors.Is(err, ErrMissingEnd):
		return IssueMissingEnd
	case errors.Is(err, ErrMalformedCard):
		return IssueMalformedCard
	case errors.Is(err, ErrUnknownTypeCode):
		return IssueUnknownTypeCode
	case errors.Is(err, ErrTypeMismatch):
		return IssueTypeMismatch
	case errors.Is(err, ErrHeapBounds):
		return IssueHeapBounds
	case errors.Is(err, ErrChecksumMismatch):
		return IssueChecksumMismatch
	default:
		return IssueSizeMismatch
	}
}

// Verify returns the issues recorded while reading plus the result of
// checking CHECKSUM and DATASUM on every unit that carries them.
func (f *File) Verify() []Issue {
	issues := append([]Issue(nil), f.Issues...)
	for i, u := range f.Units {
		for _, err := range VerifyUnit(u) {
			issues = append(issues, newIssue(i, err))
		}
	}
	return issues
}

// VerifyUnit checks the checksum keywords of a unit read from a file. Units
// built in memory, and units without the keywords, report nothing.
func VerifyUnit(u *Unit) []error {
	if u == nil || u.raw == nil || u.Header == nil {
		return nil
	}
	var errs []error

	if text, ok := u.Header.String(KeywordDatasum); ok {
		want, ok := ParseDatasum(text)
		got := Accumulate(u.paddedData(), 0)
		if !ok || got != want {
			errs = append(errs, &ChecksumError{Keyword: KeywordDatasum, Expected: want, Actual: got})
		}
	}
	if u.Header.Has(KeywordChecksum) {
		if got := Accumulate(u.raw, 0); got != ChecksumValid {
			errs = append(errs, &ChecksumError{Keyword: KeywordChecksum, Expected: ChecksumValid, Actual: got})
		}
	}
	return errs
}

// paddedData returns the payload part of raw, including its padding.
func (u *Unit) paddedData() []byte {
	if u.headerLen > len(u.raw) {
		return nil
	}
	return u.raw[u.headerLen:]
}
