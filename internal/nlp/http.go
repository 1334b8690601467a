package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPAnalyzer calls a remote tagging service.
//
// Request:  POST {URL} {"text": "..."}
// Response: 200 {"tokens": [{"text","lemma","pos","dep","ent","idx"?}]}
//
// idx, the byte offset of text, is optional. Tokens without it are located
// by scanning the analyzed string forward from the previous token. Lemmas are
// normalized with Normalize so remote and local analyzers agree on spelling.
// Transport failures and 5xx answers are retried.
type HTTPAnalyzer struct {
	URL    string
	client *resty.Client
}

// NewHTTPAnalyzer returns an analyzer with a bounded client timeout.
func NewHTTPAnalyzer(url string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(50 * time.Millisecond).
		SetRetryMaxWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &HTTPAnalyzer{URL: url, client: c}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type wireToken struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Dep   string `json:"dep"`
	Ent   string `json:"ent"`
	Idx   *int   `json:"idx"`
}

type analyzeResponse struct {
	Tokens []wireToken `json:"tokens"`
}

// Analyze posts text to the tagger and decodes its tokens.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, text string) ([]Token, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Text: text}).
		Post(a.URL)
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tagger: status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	var out analyzeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("tagger: decode: %w", err)
	}
	return locateTokens(out.Tokens, text), nil
}

// locateTokens converts wire tokens and fills missing offsets.
func locateTokens(in []wireToken, text string) []Token {
	toks := make([]Token, 0, len(in))
	cursor := 0
	for _, w := range in {
		t := Token{Text: w.Text, Lemma: Normalize(w.Lemma), POS: w.POS, Dep: w.Dep, Ent: w.Ent}
		if t.POS == "" {
			t.POS = POSOther
		}
		switch {
		case w.Idx != nil:
			t.Idx = *w.Idx
		case w.Text != "" && cursor <= len(text):
			if i := strings.Index(text[cursor:], w.Text); i >= 0 {
				t.Idx = cursor + i
			} else {
				t.Idx = cursor
			}
		default:
			t.Idx = cursor
		}
		if end := t.Idx + len(t.Text); end > cursor {
			cursor = end
		}
		toks = append(toks, t)
	}
	return toks
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
