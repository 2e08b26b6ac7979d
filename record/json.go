// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package record

import (
	"encoding/json"
	"fmt"
)

// FromJSON converts a value produced by a json.Decoder with UseNumber set
// into a Value. Objects become JSON values, arrays become arrays of converted
// elements, and relation strings become refs.
func FromJSON(x interface{}) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return Decimal(x.String())
	case float64:
		return Float(x), nil
	case string:
		if ref, ok := ParseRelation(x); ok {
			return RefTo(ref), nil
		}
		return String(x), nil
	case map[string]interface{}:
		return JSONOf(x)
	case []interface{}:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := FromJSON(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Array(elems...), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON value of type %T", x)
}
