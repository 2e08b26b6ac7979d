// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package json

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/featurebasedb/recordimport/errors"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// objectKeys returns the keys of the object stored under field of the
// object doc, in document order. encoding/json maps lose that order.
func objectKeys(doc json.RawMessage, field string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	if _, err := dec.Token(); err != nil {
		return nil, errors.NewErrParse("JSON operation", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.NewErrParse("JSON operation", err)
		}
		if key, _ := tok.(string); key == field {
			return keysOf(dec)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, errors.NewErrParse("JSON operation", err)
		}
	}
	return nil, nil
}

func keysOf(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.NewErrParse("JSON operation", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.NewErrParse("JSON operation", errors.Errorf("attributes must be an object"))
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.NewErrParse("JSON operation", err)
		}
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, errors.NewErrParse("JSON operation", err)
		}
	}
	return keys, nil
}
