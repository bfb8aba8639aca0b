// Package creditreport pulls the reported fields out of credit report prose
// with literal, case-sensitive keyword matching over annotated sentences.
package creditreport

import (
	"context"
	"strings"

	"github.com/toricodesthings/credit-report-service/internal/nlp"
)

const (
	personLabel = "PERSON"

	ficoKeyword        = "FICO"
	scoreKeyword       = "Score"
	openAccountsPhrase = "Open accounts"
	everLatePhrase     = "Accounts ever late"
)

// Result always serializes all four fields; unmatched fields are "".
type Result struct {
	Name             string `json:"name"`
	CreditScore      string `json:"credit_score"`
	OpenAccounts     string `json:"open_accounts"`
	AccountsEverLate string `json:"accounts_ever_late"`
}

// Extract annotates text once and scans the annotation.
func Extract(ctx context.Context, annotator nlp.Annotator, text string) (Result, error) {
	ann, err := annotator.Annotate(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return FromAnnotation(ann), nil
}

// FromAnnotation runs the four independent scans. Each stops at its first match.
func FromAnnotation(ann nlp.Annotation) Result {
	return Result{
		Name:             firstPerson(ann.Entities),
		CreditScore:      creditScore(ann.Sentences),
		OpenAccounts:     afterLastColon(ann.Sentences, openAccountsPhrase),
		AccountsEverLate: afterLastColon(ann.Sentences, everLatePhrase),
	}
}

// firstPerson uses the annotator's entity order, which is not necessarily
// position order.
func firstPerson(ents []nlp.Entity) string {
	for _, e := range ents {
		if e.Label == personLabel {
			return e.Text
		}
	}
	return ""
}

func creditScore(sents []nlp.Sentence) string {
	for _, s := range sents {
		if strings.Contains(s.Text, ficoKeyword) && strings.Contains(s.Text, scoreKeyword) {
			i := strings.LastIndex(s.Text, scoreKeyword)
			return strings.TrimSpace(s.Text[i+len(scoreKeyword):])
		}
	}
	return ""
}

// afterLastColon returns the text after the last ':' of the first sentence
// containing phrase, or the whole sentence when it has no colon.
func afterLastColon(sents []nlp.Sentence, phrase string) string {
	for _, s := range sents {
		if !strings.Contains(s.Text, phrase) {
			continue
		}
		v := s.Text
		if i := strings.LastIndex(v, ":"); i >= 0 {
			v = v[i+1:]
		}
		return strings.TrimSpace(v)
	}
	return ""
}
