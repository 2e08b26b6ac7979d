// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"fmt"
	"strings"
)

const (
	ErrInvalidRecordType     Code = "InvalidRecordType"
	ErrInvalidAttribute      Code = "InvalidAttribute"
	ErrParse                 Code = "Parse"
	ErrTypeConflict          Code = "TypeConflict"
	ErrUnknownRelationTarget Code = "UnknownRelationTarget"
	ErrDuplicatePrimaryKey   Code = "DuplicatePrimaryKey"
	ErrPrimaryKeyMismatch    Code = "PrimaryKeyMismatch"
	ErrInvalidSchemaChange   Code = "InvalidSchemaChange"
	ErrBatchWrite            Code = "BatchWrite"
	ErrRelationExists        Code = "RelationExists"
	ErrUnsupportedOperation  Code = "UnsupportedOperation"
	ErrNotFound              Code = "NotFound"
)

// MaxSampleSize bounds the number of offending rows reported in an error.
const MaxSampleSize = 100

var validationCodes = map[Code]bool{
	ErrInvalidRecordType:     true,
	ErrInvalidAttribute:      true,
	ErrTypeConflict:          true,
	ErrUnknownRelationTarget: true,
	ErrDuplicatePrimaryKey:   true,
	ErrPrimaryKeyMismatch:    true,
	ErrInvalidSchemaChange:   true,
}

// IsValidation reports whether err carries one of the codes describing bad
// input rather than a failure of the store or transport.
func IsValidation(err error) bool {
	return validationCodes[CodeOf(err)]
}

func NewErrInvalidRecordType(name, reason string) error {
	return New(
		ErrInvalidRecordType,
		fmt.Sprintf("invalid record type '%s': %s", name, reason),
	)
}

func NewErrInvalidAttribute(name, reason string) error {
	return New(
		ErrInvalidAttribute,
		fmt.Sprintf("invalid attribute '%s': %s", name, reason),
	)
}

func NewErrParse(what string, err error) error {
	return New(
		ErrParse,
		fmt.Sprintf("parsing %s: %v", what, err),
	)
}

// NewErrTypeConflict reports a column whose observed types cannot be merged.
// ids is a sample of the record ids carrying the conflicting values.
func NewErrTypeConflict(column, existing, observed string, ids []string) error {
	return New(
		ErrTypeConflict,
		fmt.Sprintf("column '%s': cannot combine type %s with %s%s", column, existing, observed, sampleSuffix(ids)),
	)
}

func NewErrUnknownRelationTarget(column, target string) error {
	return New(
		ErrUnknownRelationTarget,
		fmt.Sprintf("relation column '%s' references unknown record type or id '%s'", column, target),
	)
}

func NewErrDuplicatePrimaryKey(column, value string) error {
	return New(
		ErrDuplicatePrimaryKey,
		fmt.Sprintf("duplicate value '%s' for primary key column '%s'", value, column),
	)
}

func NewErrPrimaryKeyMismatch(recordType, existing, given string) error {
	return New(
		ErrPrimaryKeyMismatch,
		fmt.Sprintf("record type '%s' has primary key '%s', not '%s'", recordType, existing, given),
	)
}

func NewErrInvalidSchemaChange(recordType, column, reason string) error {
	return New(
		ErrInvalidSchemaChange,
		fmt.Sprintf("record type '%s' column '%s': %s", recordType, column, reason),
	)
}

// NewErrBatchWrite reports a failed batch together with a bounded sample of
// the rows which could not be written.
func NewErrBatchWrite(recordType string, rows []string, err error) error {
	msg := fmt.Sprintf("writing batch of '%s'", recordType)
	if err != nil {
		msg += ": " + err.Error()
	}
	return New(ErrBatchWrite, msg+sampleSuffix(rows))
}

func NewErrRelationExists(recordType string, err error) error {
	return New(
		ErrRelationExists,
		fmt.Sprintf("cannot delete records of '%s' still referenced by a relation: %v", recordType, err),
	)
}

func NewErrUnsupportedOperation(op, variant string) error {
	return New(
		ErrUnsupportedOperation,
		fmt.Sprintf("%s is not supported by %s", op, variant),
	)
}

func NewErrNotFound(what string) error {
	return New(
		ErrNotFound,
		fmt.Sprintf("not found: %s", what),
	)
}

// Sample returns at most MaxSampleSize elements of s.
func Sample(s []string) []string {
	if len(s) > MaxSampleSize {
		return s[:MaxSampleSize]
	}
	return s
}

func sampleSuffix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d offending rows, sample: %s)", len(items), strings.Join(Sample(items), ", "))
}
