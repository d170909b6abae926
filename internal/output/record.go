// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

// EmitRecord renders a single record. json matches the stored form, raw is
// compact, yaml keeps field order and text is a field/value table.
func EmitRecord(rec *record.Record, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case "json":
		out, err := backend.Encode(rec)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "raw":
		out, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		return writeYAML(w, recordNode(rec))
	default:
		var rows []map[string]interface{}
		for _, k := range rec.Keys() {
			v, _ := rec.Get(k)
			rows = append(rows, map[string]interface{}{"field": k, "value": v.Interface()})
		}
		TableWriter(rows, []string{"field", "value"}, opts, w)
		return nil
	}
}

func writeYAML(w io.Writer, node *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	return enc.Close()
}

func sequenceNode(recs []*record.Record) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, rec := range recs {
		n.Content = append(n.Content, recordNode(rec))
	}
	return n
}

func recordNode(rec *record.Record) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueNode(v),
		)
	}
	return n
}

func valueNode(v record.Value) *yaml.Node {
	switch v.Kind() {
	case record.Object:
		child, _ := v.AsRecord()
		return recordNode(child)
	case record.Array:
		items, _ := v.AsArray()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case record.Number:
		if i, ok := v.AsInt(); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(i)}
		}
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: fmt.Sprint(f)}
	case record.Bool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(b)}
	case record.String:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
