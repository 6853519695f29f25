package script

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/podforge/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// Script serializer — the only durable interchange format the engine defines.
// A script serializes to a YAML document with top-level meta / hosts /
// segments. Round trips preserve structure and text exactly; formatting and
// comments are not preserved.
// ---------------------------------------------------------------------------

type document struct {
	Meta     meta             `yaml:"meta"`
	Hosts    []models.Host    `yaml:"hosts"`
	Segments []models.Segment `yaml:"segments"`
}

type meta struct {
	Title       string `yaml:"title"`
	DurationSec int    `yaml:"duration_sec"`
	Created     string `yaml:"created"`
	Mode        string `yaml:"mode"`
}

// Serialize renders a script as a YAML document.
func Serialize(s *models.Script) ([]byte, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	doc := document{
		Meta: meta{
			Title:       s.Title,
			DurationSec: s.TargetDurationSec,
			Created:     s.CreatedAt.Format(time.RFC3339Nano),
			Mode:        string(s.Mode),
		},
		Hosts:    s.Hosts,
		Segments: s.Segments,
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, models.WrapError(models.ErrMalformedScript, err, "marshal script")
	}
	return out, nil
}

// Parse reads an externally supplied script document. Failures surface as
// malformed_script with a line or field locator.
func Parse(data []byte) (*models.Script, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, wrapYAMLErr(err)
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, wrapYAMLErr(err)
	}
	if doc.Meta.Title == "" {
		return nil, models.NewError(models.ErrMalformedScript, "missing meta.title").WithLocator("meta")
	}
	created, err := time.Parse(time.RFC3339Nano, doc.Meta.Created)
	if err != nil {
		return nil, models.WrapError(models.ErrMalformedScript, err, "bad meta.created timestamp").
			WithLocator("meta.created")
	}
	s := &models.Script{
		Title:             doc.Meta.Title,
		Mode:              models.Mode(doc.Meta.Mode),
		TargetDurationSec: doc.Meta.DurationSec,
		CreatedAt:         created,
		Hosts:             doc.Hosts,
		Segments:          doc.Segments,
	}
	if err := Validate(s); err != nil {
		// Invariant violations in an external document are parse failures,
		// not caller precondition errors.
		me := models.AsError(err, models.ErrMalformedScript)
		return nil, (&models.Error{
			Kind:    models.ErrMalformedScript,
			Message: me.Message,
			Locator: me.Locator,
		})
	}
	return s, nil
}

// wrapYAMLErr preserves yaml.v3's line information as the locator.
func wrapYAMLErr(err error) error {
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		return models.WrapError(models.ErrMalformedScript, err, "invalid script document").
			WithLocator("%s", te.Errors[0])
	}
	return models.WrapError(models.ErrMalformedScript, err, "invalid script document").
		WithLocator("%s", firstLine(err.Error()))
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Equal reports structural equality of two scripts: metadata, hosts and
// segment text, ignoring estimator caches.
func Equal(a, b *models.Script) bool {
	if a.Title != b.Title || a.Mode != b.Mode || a.TargetDurationSec != b.TargetDurationSec {
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if len(a.Hosts) != len(b.Hosts) || len(a.Segments) != len(b.Segments) {
		return false
	}
	for i := range a.Hosts {
		if a.Hosts[i] != b.Hosts[i] {
			return false
		}
	}
	for i := range a.Segments {
		if a.Segments[i].Speaker != b.Segments[i].Speaker || a.Segments[i].Text != b.Segments[i].Text {
			return false
		}
	}
	return true
}
