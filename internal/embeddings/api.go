package embeddings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ApiOptions tunes the HTTP embedder. Prefixes support models that expect
// marked inputs (e5-style "query: " / "passage: "); a prefix is skipped when
// the text already starts with it.
type ApiOptions struct {
	PrefixQuery    string
	PrefixDocument string
}

type ApiEmbedder struct {
	url    string
	opts   ApiOptions
	client *http.Client
}

func NewApi(url string, opts ApiOptions) *ApiEmbedder {
	return &ApiEmbedder{url: url, opts: opts, client: &http.Client{}}
}

func (e *ApiEmbedder) ModelName() string { return "api" }

func (e *ApiEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = addPrefix(t, e.opts.PrefixDocument)
	}
	return e.embedRequest(prefixed)
}

func (e *ApiEmbedder) EmbedQuery(text string) ([]float32, error) {
	embeddings, err := e.embedRequest([]string{addPrefix(text, e.opts.PrefixQuery)})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding API returned no vectors")
	}
	return embeddings[0], nil
}

func addPrefix(text, prefix string) string {
	if prefix == "" || strings.HasPrefix(strings.ToLower(text), strings.ToLower(strings.TrimSpace(prefix))) {
		return text
	}
	return prefix + text
}

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

func (e *ApiEmbedder) embedRequest(texts []string) ([][]float32, error) {
	request := &embedRequest{Sentences: texts}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	response, err := e.client.Post(e.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", response.StatusCode)
	}
	var embeddings [][]float32
	if err := json.NewDecoder(response.Body).Decode(&embeddings); err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}
