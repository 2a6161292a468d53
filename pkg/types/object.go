// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// member is one key/value pair of an encoded JSON object.
type member struct {
	key string
	val any
}

// decodeObject splits a JSON object into its raw members and the order in
// which their keys appeared. A repeated key keeps its first position and
// its last value, matching encoding/json.
func decodeObject(data []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	fields := make(map[string]json.RawMessage)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, dup := fields[key]; !dup {
			order = append(order, key)
		}
		fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return fields, order, nil
}

// orderMembers lays out an object's members: keys listed in order come
// first in that order, then known members not yet placed, then the
// remaining extra fields sorted by key.
func orderMembers(order []string, known []member, extra map[string]json.RawMessage) []member {
	out := make([]member, 0, len(known)+len(extra))
	placed := make(map[string]bool, len(known)+len(extra))

	byKey := make(map[string]member, len(known))
	for _, m := range known {
		byKey[m.key] = m
	}

	for _, k := range order {
		if placed[k] {
			continue
		}
		if m, ok := byKey[k]; ok {
			out = append(out, m)
			placed[k] = true
		} else if v, ok := extra[k]; ok {
			out = append(out, member{k, v})
			placed[k] = true
		}
	}
	for _, m := range known {
		if !placed[m.key] {
			out = append(out, m)
			placed[m.key] = true
		}
	}

	var rest []string
	for k := range extra {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		out = append(out, member{k, extra[k]})
	}
	return out
}

// encodeObject writes members as a compact JSON object in the given order.
func encodeObject(members []member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalTo(&buf, m.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := marshalTo(&buf, m.val); err != nil {
			return nil, fmt.Errorf("field %q: %w", m.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalTo appends the compact encoding of v without HTML escaping, so
// names like "a<b" are written as they were read.
func marshalTo(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
