// Package patch applies a whitelisted subset of JSON Patch (RFC 6902) to a
// flat document of string fields.
//
// Only replace, add and remove are accepted. A request containing any other
// operation is rejected as a whole, and op names must match exactly. Paths
// name a single top-level field ("/username") and are matched
// case-insensitively against the allowed set.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"usersvc/cmd/internal/validation"
)

const (
	OpReplace = "replace"
	OpAdd     = "add"
	OpRemove  = "remove"
)

const (
	MsgNull        = "patch cannot be null"
	MsgInvalidOp   = "invalid patch operation"
	MsgUnknownPath = "unknown patch path"
	MsgValueString = "patch value must be a string"
)

// Operation is one entry of a JSON Patch document.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
	From  string          `json:"from,omitempty"`
}

// Document maps field names to values.
type Document map[string]string

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Validate checks the shape of ops against the allowed field names.
// A nil slice is a null patch; an empty one is a valid no-op.
func Validate(ops []Operation, allowed ...string) validation.Errors {
	if ops == nil {
		return validation.Errors{{Field: "patch", Message: MsgNull}}
	}

	var out validation.Errors
	for i, op := range ops {
		prefix := fmt.Sprintf("operations[%d]", i)

		switch op.Op {
		case OpReplace, OpAdd, OpRemove:
		default:
			out = append(out, validation.Violation{Field: prefix + ".op", Message: MsgInvalidOp})
			continue
		}

		if _, ok := resolvePath(op.Path, allowed); !ok {
			out = append(out, validation.Violation{Field: prefix + ".path", Message: MsgUnknownPath})
		}

		if op.Op != OpRemove {
			if _, ok := stringValue(op.Value); !ok {
				out = append(out, validation.Violation{Field: prefix + ".value", Message: MsgValueString})
			}
		}
	}
	return out
}

// Apply runs ops in order against a copy of doc. ops must have passed
// Validate with the same allowed set; anything else is an error.
// remove and null values clear the field to "".
func Apply(doc Document, ops []Operation, allowed ...string) (Document, error) {
	if errs := Validate(ops, allowed...); len(errs) > 0 {
		return nil, errs
	}

	out := doc.clone()
	for _, op := range ops {
		field, _ := resolvePath(op.Path, allowed)
		switch op.Op {
		case OpRemove:
			out[field] = ""
		default:
			v, _ := stringValue(op.Value)
			out[field] = v
		}
	}
	return out, nil
}

func resolvePath(path string, allowed []string) (string, bool) {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	p = p[1:]
	if p == "" || strings.Contains(p, "/") {
		return "", false
	}
	for _, a := range allowed {
		if strings.EqualFold(p, a) {
			return a, true
		}
	}
	return "", false
}

// stringValue decodes a JSON string. Absent and null values decode to "".
func stringValue(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", true
	}
	if trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}
