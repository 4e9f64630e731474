package specgraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrMissingNodes = errors.New("configuration is missing the spec nodes list")

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(nodeIdentity, Node{})
	validate.RegisterStructValidation(dependencyIdentity, DependencyRef{})
}

func nodeIdentity(sl validator.StructLevel) {
	n := sl.Current().Interface().(Node)
	if n.Identity() == "" {
		sl.ReportError(n.FullHash, "FullHash", "full_hash", "hash_required", "")
	}
}

func dependencyIdentity(sl validator.StructLevel) {
	d := sl.Current().Interface().(DependencyRef)
	if d.Identity() == "" {
		sl.ReportError(d.FullHash, "FullHash", "full_hash", "hash_required", "")
	}
}

// Parse decodes a configuration document. Both {"spec":{"nodes":[...]}} and a bare
// {"nodes":[...]} are accepted.
func Parse(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrMissingNodes
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("configuration is not a json object: %w", err)
	}
	if inner, ok := top["spec"]; ok {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return nil, fmt.Errorf("spec must be an object with a nodes list: %w", err)
		}
	}
	nodesRaw, ok := top["nodes"]
	if !ok || len(bytes.TrimSpace(nodesRaw)) == 0 || bytes.Equal(bytes.TrimSpace(nodesRaw), []byte("null")) {
		return nil, ErrMissingNodes
	}
	var doc Document
	if err := json.Unmarshal(nodesRaw, &doc.Nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks a decoded document and flattens validator errors into one message.
func Validate(doc *Document) error {
	if doc == nil || len(doc.Nodes) == 0 {
		return ErrMissingNodes
	}
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.TrimPrefix(fe.Namespace(), "Document."), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
