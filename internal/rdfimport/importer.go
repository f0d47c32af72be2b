// Package rdfimport prefills signup form fields from an external FOAF
// profile document. Nothing here is ever persisted.
package rdfimport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/knakk/rdf"
	"go.uber.org/zap"
)

const (
	rdfTypeIRI     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	foafPersonIRI  = "http://xmlns.com/foaf/0.1/Person"
	foafName       = "http://xmlns.com/foaf/0.1/name"
	foafGivenName  = "http://xmlns.com/foaf/0.1/givenName"
	foafFamilyName = "http://xmlns.com/foaf/0.1/familyName"
	foafNick       = "http://xmlns.com/foaf/0.1/nick"
	foafMbox       = "http://xmlns.com/foaf/0.1/mbox"
)

// ProfileFields is the prefill payload for the signup form. Missing fields
// stay empty; a partial profile is not an error.
type ProfileFields struct {
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
}

type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.URL, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

type Importer interface {
	ImportFromURL(ctx context.Context, url string) (ProfileFields, error)
}

type importer struct {
	client *http.Client
	log    *zap.Logger
}

// New builds an importer whose fetches fail closed after timeout.
func New(log *zap.Logger, timeout time.Duration) Importer {
	return &importer{
		client: &http.Client{Timeout: timeout},
		log:    log.Named("rdfimport"),
	}
}

func (s *importer) ImportFromURL(ctx context.Context, url string) (ProfileFields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProfileFields{}, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/rdf+xml, text/turtle, application/n-triples")

	resp, err := s.client.Do(req)
	if err != nil {
		return ProfileFields{}, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProfileFields{}, &FetchError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	format := formatFor(resp.Header.Get("Content-Type"), url)
	triples, err := rdf.NewTripleDecoder(resp.Body, format).DecodeAll()
	if err != nil {
		return ProfileFields{}, &ParseError{URL: url, Err: err}
	}

	fields := extract(triples)
	s.log.Debug("profile prefill imported",
		zap.String("url", url),
		zap.Int("triples", len(triples)),
	)
	return fields, nil
}

func formatFor(contentType, url string) rdf.Format {
	switch {
	case strings.Contains(contentType, "turtle"):
		return rdf.Turtle
	case strings.Contains(contentType, "n-triples"):
		return rdf.NTriples
	case strings.HasSuffix(url, ".ttl"):
		return rdf.Turtle
	case strings.HasSuffix(url, ".nt"):
		return rdf.NTriples
	default:
		return rdf.RDFXML
	}
}

// extract runs an independent first-match query per FOAF property over the
// subjects typed foaf:Person. Documents without an explicit type statement
// are queried whole.
func extract(triples []rdf.Triple) ProfileFields {
	personSubjects := map[string]bool{}
	for _, t := range triples {
		if t.Pred.String() == rdfTypeIRI && t.Obj.String() == foafPersonIRI {
			personSubjects[t.Subj.String()] = true
		}
	}

	first := func(predicate string) string {
		for _, t := range triples {
			if t.Pred.String() != predicate {
				continue
			}
			if len(personSubjects) > 0 && !personSubjects[t.Subj.String()] {
				continue
			}
			return strings.TrimSpace(t.Obj.String())
		}
		return ""
	}

	name := first(foafName)
	givenName := first(foafGivenName)
	if givenName == "" {
		givenName = name
	}

	username := first(foafNick)
	if username == "" {
		username = givenName
	}
	if username != "" {
		username = slug.Make(username)
	}

	email := strings.TrimPrefix(first(foafMbox), "mailto:")

	return ProfileFields{
		GivenName:  givenName,
		FamilyName: first(foafFamilyName),
		Username:   username,
		Email:      email,
	}
}
