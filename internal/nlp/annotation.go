// Package nlp wraps the named-entity and sentence annotator used by the
// extraction heuristics, and installs its model at startup.
package nlp

import "context"

// Entity is a labelled span such as PERSON or GPE.
type Entity struct {
	Text  string
	Label string
}

type Sentence struct {
	Text string
}

// Annotation is a read-only view over one piece of text. Entities keep the
// annotator's native order; Sentences are in document order.
type Annotation struct {
	Entities  []Entity
	Sentences []Sentence
}

// Annotator must be safe for concurrent use.
type Annotator interface {
	Annotate(ctx context.Context, text string) (Annotation, error)
}
