package nlp

import (
	"context"
	"fmt"

	"github.com/jdkato/prose/v2"
)

// Model is a loaded annotation model. It is never mutated after loading.
type Model struct {
	name  string
	model *prose.Model
}

func (m *Model) Name() string { return m.name }

func (m *Model) Annotate(ctx context.Context, text string) (Annotation, error) {
	if err := ctx.Err(); err != nil {
		return Annotation{}, err
	}

	doc, err := prose.NewDocument(text, prose.UsingModel(m.model))
	if err != nil {
		return Annotation{}, fmt.Errorf("annotate: %w", err)
	}

	ents := doc.Entities()
	sents := doc.Sentences()

	out := Annotation{
		Entities:  make([]Entity, 0, len(ents)),
		Sentences: make([]Sentence, 0, len(sents)),
	}
	for _, e := range ents {
		out.Entities = append(out.Entities, Entity{Text: e.Text, Label: e.Label})
	}
	for _, s := range sents {
		out.Sentences = append(out.Sentences, Sentence{Text: s.Text})
	}
	return out, nil
}

// loadModel reads an installed model directory. prose panics on unreadable
// model files, so the panic is turned into an error here.
func loadModel(name, dir string) (m *Model, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m, err = nil, fmt.Errorf("load model %s: %v", name, rec)
		}
	}()

	return &Model{name: name, model: prose.ModelFromDisk(dir)}, nil
}

// writeBundledModel serializes the English model shipped with prose into dir.
func writeBundledModel(name, dir string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("write bundled model: %v", rec)
		}
	}()

	return prose.ModelFromData(name).Write(dir)
}
