// Package exchange converts presets and preset groups to and from the JSON
// documents users pass around. Imported documents always get fresh ids.
package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ivlev/vnplay/internal/script"
)

var (
	// ErrMalformed means the document is not valid JSON or does not decode
	ErrMalformed = errors.New("malformed document")
	// ErrUnrecognized means valid JSON that is neither a preset nor a group
	ErrUnrecognized = errors.New("unrecognized document shape")
)

// Kind of an exchanged document
type Kind int

const (
	KindPreset Kind = iota + 1
	KindGroup
)

// groupDocument is the export shape of a preset group
type groupDocument struct {
	Group   groupHeader             `json:"group"`
	Presets []script.DialogueScript `json:"presets"`
}

type groupHeader struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Result of a successful import
type Result struct {
	Kind    Kind
	Presets []script.DialogueScript
	Group   *script.PresetGroup
}

// ExportPreset encodes one script.
func ExportPreset(s script.DialogueScript) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ExportGroup encodes a group as {group: {...}, presets: [...]}.
func ExportGroup(g script.PresetGroup) ([]byte, error) {
	doc := groupDocument{
		Group:   groupHeader{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt},
		Presets: g.Presets,
	}
	if doc.Presets == nil {
		doc.Presets = []script.DialogueScript{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Detect classifies a document without decoding it.
func Detect(data []byte) (Kind, error) {
	if !gjson.ValidBytes(data) {
		return 0, ErrMalformed
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return 0, ErrUnrecognized
	}
	if root.Get("paragraphs").IsArray() {
		return KindPreset, nil
	}
	if root.Get("group").IsObject() && root.Get("presets").IsArray() {
		return KindGroup, nil
	}
	return 0, ErrUnrecognized
}

// Import decodes a preset or group document, regenerating every id from now.
// Nothing is returned on error.
func Import(data []byte, now time.Time) (*Result, error) {
	kind, err := Detect(data)
	if err != nil {
		return nil, err
	}

	ts := now.UnixMilli()

	switch kind {
	case KindPreset:
		patched, err := sjson.SetBytes(data, "id", script.PresetID(now))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		patched, err = sjson.SetBytes(patched, "updatedAt", ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		var s script.DialogueScript
		if err := json.Unmarshal(patched, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return &Result{Kind: KindPreset, Presets: []script.DialogueScript{s}}, nil

	default:
		patched, err := regenerateGroupIDs(data, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		var doc groupDocument
		if err := json.Unmarshal(patched, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		g := &script.PresetGroup{
			ID:        doc.Group.ID,
			Name:      doc.Group.Name,
			Presets:   doc.Presets,
			CreatedAt: doc.Group.CreatedAt,
		}
		return &Result{Kind: KindGroup, Presets: doc.Presets, Group: g}, nil
	}
}

// regenerateGroupIDs rewrites ids in place: members become preset_<ts>_<old id>
func regenerateGroupIDs(data []byte, now time.Time) ([]byte, error) {
	ts := now.UnixMilli()
	base := script.PresetID(now)

	var err error
	patched := data

	members := gjson.GetBytes(data, "presets").Array()
	for i, m := range members {
		old := m.Get("id").String()
		id := base
		if old != "" {
			id = base + "_" + old
		}

		path := "presets." + strconv.Itoa(i)
		if patched, err = sjson.SetBytes(patched, path+".id", id); err != nil {
			return nil, err
		}
		if patched, err = sjson.SetBytes(patched, path+".updatedAt", ts); err != nil {
			return nil, err
		}
	}

	if patched, err = sjson.SetBytes(patched, "group.id", script.GroupID(now)); err != nil {
		return nil, err
	}
	if patched, err = sjson.SetBytes(patched, "group.createdAt", ts); err != nil {
		return nil, err
	}
	return patched, nil
}
