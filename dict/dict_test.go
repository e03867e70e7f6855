package dict

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleResponse = `[
  {
    "word": "leaf",
    "phonetic": "/liːf/",
    "meanings": [
      {
        "partOfSpeech": "noun",
        "definitions": [
          {"definition": "The usually green and flat organ of a plant.", "example": "a maple leaf"},
          {"definition": "A sheet of a book."}
        ]
      }
    ]
  }
]`

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient()
	c.baseURL = srv.URL + "/"
	return c, srv
}

func TestDefine(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaf" {
			t.Errorf("got path %q", r.URL.Path)
		}
		w.Write([]byte(sampleResponse))
	})
	defer srv.Close()

	entries, err := c.Define(context.Background(), "leaf")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, expected 1", len(entries))
	}
	e := entries[0]
	if e.Word != "leaf" || e.Phonetic != "/liːf/" {
		t.Errorf("got %+v", e)
	}
	if len(e.Definitions) != 2 {
		t.Fatalf("got %d definitions, expected 2", len(e.Definitions))
	}
	if e.Definitions[0].PartOfSpeech != "noun" {
		t.Errorf("got part of speech %q", e.Definitions[0].PartOfSpeech)
	}
	if e.Definitions[0].Example != "a maple leaf" {
		t.Errorf("got example %q", e.Definitions[0].Example)
	}
}

func TestDefineUnknownWord(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer srv.Close()

	entries, err := c.Define(context.Background(), "zzzz")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if entries != nil {
		t.Errorf("got %v, expected no entries", entries)
	}
}

func TestFormat(t *testing.T) {
	lines := Format([]Entry{{
		Word:     "leaf",
		Phonetic: "/liːf/",
		Definitions: []Definition{
			{PartOfSpeech: "noun", Definition: "A sheet of a book.", Example: "turn the leaf"},
		},
	}})

	joined := strings.Join(lines, "\n")
	for _, want := range []string{"leaf  /liːf/", "1. (noun) A sheet of a book.", "e.g. turn the leaf"} {
		if !strings.Contains(joined, want) {
			t.Errorf("formatted output missing %q:\n%s", want, joined)
		}
	}
}
