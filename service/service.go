// Package service implements the category, recipe and account operations on top of a
// CollectionStore. Every operation re-reads the collections it touches and rewrites them whole;
// nothing is cached between calls.
package service

import (
	"fmt"
	"recipe-server/core"
)

// invalid wraps an ozzo-validation result as a core.ErrValidation.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", core.ErrValidation, err)
}
