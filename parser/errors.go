package parser

import (
	"errors"
	"fmt"
)

// ErrCategoryListMissing indicates the side navigation was not on the root page.
var ErrCategoryListMissing = errors.New("category list missing")

// ParseStructureError indicates an expected container was absent from a page.
type ParseStructureError struct {
	Page    string
	Element string
	Err     error
}

func (e ParseStructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse structure: %s not found on %s: %v", e.Element, e.Page, e.Err)
	}
	return fmt.Sprintf("parse structure: %s not found on %s", e.Element, e.Page)
}

func (e ParseStructureError) Unwrap() error {
	return e.Err
}

// ExtractionError names a required product field that could not be derived.
type ExtractionError struct {
	Field   string
	PageURL string
	Err     error
}

func (e ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s from %s: %v", e.Field, e.PageURL, e.Err)
	}
	return fmt.Sprintf("extract %s from %s: not found", e.Field, e.PageURL)
}

func (e ExtractionError) Unwrap() error {
	return e.Err
}
