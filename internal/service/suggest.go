package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/normalize"
	"github.com/amishk599/jobdeck/internal/suggest"
)

// corpusSkillsLimit bounds the skills-demand list used as suggestion corpus.
const corpusSkillsLimit = 100

const sourceTitles = "titles"

// Suggest returns ranked suggestions for a partial input. ok is false when
// a newer call superseded this one and its result must be ignored.
func (s *Service) Suggest(ctx context.Context, term string) ([]suggest.Suggestion, bool, error) {
	return s.engine.Query(ctx, term)
}

// CancelSuggest abandons any suggestion query in flight.
func (s *Service) CancelSuggest() {
	s.engine.Cancel()
}

// Corpus builds the suggestion corpus for term from skills demand
// (popularity = demand) and the titles of a search for the term
// (popularity = occurrences). The two are fetched in parallel; the corpus
// is an error only when both fail.
func (s *Service) Corpus(ctx context.Context, term string) ([]suggest.Term, error) {
	st := filter.Apply(filter.Reset(), filter.WithText(term))
	res, err := s.client.FetchAll(ctx, []fetch.NamedRequest{
		s.client.SkillsDemandRequest(corpusSkillsLimit),
		s.client.SearchRequest(sourceTitles, st),
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion corpus: %w", err)
	}

	var corpus []suggest.Term
	var errs []error
	for _, f := range res.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}

	if body, ok := res.Results[model.SourceSkillsDemand]; ok {
		skills, err := normalize.SkillsDemand(body)
		if err != nil {
			errs = append(errs, err)
		}
		for _, sk := range skills {
			corpus = append(corpus, suggest.Term{Value: sk.Skill, Popularity: sk.Demand, Kind: suggest.KindSkill})
		}
	}

	if body, ok := res.Results[sourceTitles]; ok {
		page, err := s.searchPage(st, body)
		if err != nil {
			errs = append(errs, err)
		} else {
			corpus = append(corpus, titleTerms(page.Jobs)...)
		}
	}

	if len(corpus) == 0 && len(errs) == 2 {
		return nil, fmt.Errorf("suggestion corpus: %w", errors.Join(errs...))
	}
	for _, err := range errs {
		s.logger.Debug("suggestion source unavailable", "error", err)
	}
	return corpus, nil
}

// titleTerms counts job titles case-insensitively, keeping the first spelling.
func titleTerms(jobs []model.Job) []suggest.Term {
	index := make(map[string]int)
	var terms []suggest.Term
	for _, job := range jobs {
		title := strings.TrimSpace(job.Title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if i, ok := index[key]; ok {
			terms[i].Popularity++
			continue
		}
		index[key] = len(terms)
		terms = append(terms, suggest.Term{Value: title, Popularity: 1, Kind: suggest.KindTitle})
	}
	return terms
}
