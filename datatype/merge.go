// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package datatype

import "fmt"

// IncompatibleError is returned by Merge when one type is an array and the
// other is a scalar.
type IncompatibleError struct {
	A, B DataType
}

func (e IncompatibleError) Error() string {
	return fmt.Sprintf("incompatible types %s and %s: arrays and scalars cannot share a column", e.A, e.B)
}

// Merge returns the narrowest type able to hold values of both a and b.
// Merge(a, b) == Merge(b, a) for every pair.
func Merge(a, b DataType) (DataType, error) {
	if a == b {
		return a, nil
	}
	if a == Null {
		return b, nil
	}
	if b == Null {
		return a, nil
	}
	if a.IsArray() != b.IsArray() {
		return Null, IncompatibleError{A: a, B: b}
	}
	if a.IsArray() {
		if a == EmptyArray {
			return b, nil
		}
		if b == EmptyArray {
			return a, nil
		}
		return ArrayOf(mergeScalar(a.ElementType(), b.ElementType())), nil
	}
	return mergeScalar(a, b), nil
}

// mergeScalar merges two different non-null scalar types.
func mergeScalar(a, b DataType) DataType {
	if a == b {
		return a
	}
	if (a == Date && b == DateTime) || (a == DateTime && b == Date) {
		return DateTime
	}
	return String
}
