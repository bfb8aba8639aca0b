package creditreport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toricodesthings/credit-report-service/internal/nlp"
)

type fakeAnnotator struct {
	ann   nlp.Annotation
	err   error
	texts []string
}

func (f *fakeAnnotator) Annotate(ctx context.Context, text string) (nlp.Annotation, error) {
	f.texts = append(f.texts, text)
	return f.ann, f.err
}

func sentences(texts ...string) []nlp.Sentence {
	out := make([]nlp.Sentence, 0, len(texts))
	for _, t := range texts {
		out = append(out, nlp.Sentence{Text: t})
	}
	return out
}

func TestFromAnnotation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ann  nlp.Annotation
		want Result
	}{
		{
			name: "full report",
			ann: nlp.Annotation{
				Entities: []nlp.Entity{{Text: "Equifax", Label: "ORG"}, {Text: "John Smith", Label: "PERSON"}},
				Sentences: sentences(
					"Sir John Smith has a FICO Score 720.",
					"Open accounts: 5 active, 2 closed",
					"Accounts ever late: 0",
				),
			},
			want: Result{Name: "John Smith", CreditScore: "720.", OpenAccounts: "5 active, 2 closed", AccountsEverLate: "0"},
		},
		{
			name: "score keeps text after the colon that follows it",
			ann:  nlp.Annotation{Sentences: sentences("Sir John Smith has a FICO Score: 720.")},
			want: Result{CreditScore: ": 720."},
		},
		{
			name: "only text after the last Score is kept",
			ann:  nlp.Annotation{Sentences: sentences("FICO Score (Score range 300-850) Score 690 ")},
			want: Result{CreditScore: "690"},
		},
		{
			name: "score needs both keywords in one sentence",
			ann:  nlp.Annotation{Sentences: sentences("FICO report.", "Score 700.")},
			want: Result{},
		},
		{
			name: "matching is case sensitive",
			ann: nlp.Annotation{Sentences: sentences(
				"fico score: 700", "open accounts: 3", "accounts ever late: 1",
			)},
			want: Result{},
		},
		{
			name: "last colon wins",
			ann:  nlp.Annotation{Sentences: sentences("Open accounts: as of 10:30: 7")},
			want: Result{OpenAccounts: "7"},
		},
		{
			name: "whole sentence without colon",
			ann:  nlp.Annotation{Sentences: sentences("  Accounts ever late none reported  ")},
			want: Result{AccountsEverLate: "Accounts ever late none reported"},
		},
		{
			name: "first matching sentence wins",
			ann: nlp.Annotation{Sentences: sentences(
				"Open accounts: 4", "Open accounts: 9",
				"FICO Score 700", "FICO Score 800",
			)},
			want: Result{OpenAccounts: "4", CreditScore: "700"},
		},
		{
			name: "first person in annotator order",
			ann: nlp.Annotation{Entities: []nlp.Entity{
				{Text: "Jane Doe", Label: "PERSON"}, {Text: "John Smith", Label: "PERSON"},
			}},
			want: Result{Name: "Jane Doe"},
		},
		{
			name: "no person entity",
			ann:  nlp.Annotation{Entities: []nlp.Entity{{Text: "Boston", Label: "GPE"}}},
			want: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAnnotation(tt.ann))
		})
	}
}

func TestExtractAnnotatesOnce(t *testing.T) {
	t.Parallel()

	fake := &fakeAnnotator{ann: nlp.Annotation{Sentences: sentences("Accounts ever late: 0")}}

	res, err := Extract(context.Background(), fake, "Accounts ever late: 0")
	require.NoError(t, err)

	assert.Equal(t, "0", res.AccountsEverLate)
	assert.Equal(t, []string{"Accounts ever late: 0"}, fake.texts)
}

func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	fake := &fakeAnnotator{ann: nlp.Annotation{
		Entities:  []nlp.Entity{{Text: "John Smith", Label: "PERSON"}},
		Sentences: sentences("FICO Score 720"),
	}}

	first, err := Extract(context.Background(), fake, "doc")
	require.NoError(t, err)
	second, err := Extract(context.Background(), fake, "doc")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractReturnsAnnotatorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("annotator down")

	_, err := Extract(context.Background(), &fakeAnnotator{err: boom}, "x")
	require.ErrorIs(t, err, boom)
}

func TestResultJSONAlwaysHasAllFields(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Result{})
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":"","credit_score":"","open_accounts":"","accounts_ever_late":""}`, string(b))
}
