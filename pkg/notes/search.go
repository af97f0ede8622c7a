package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// DefaultSearchIndex is the OpenSearch index notes live in.
const DefaultSearchIndex = "notes"

const searchResultLimit = 25

// Searcher indexes notes for full-text search. The production
// implementation is OpenSearch; the service treats it as optional.
type Searcher interface {
	Index(ctx context.Context, n *Note) error
	Remove(ctx context.Context, noteID uuid.UUID) error
	Search(ctx context.Context, userID uuid.UUID, query string) ([]Note, error)
}

// SearchIndex is the OpenSearch-backed Searcher.
type SearchIndex struct {
	client *opensearch.Client
	index  string
}

// NewSearchIndex creates a Searcher over the given OpenSearch client. An
// empty index name falls back to DefaultSearchIndex.
func NewSearchIndex(client *opensearch.Client, index string) *SearchIndex {
	if index == "" {
		index = DefaultSearchIndex
	}
	return &SearchIndex{client: client, index: index}
}

type noteDoc struct {
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *SearchIndex) Index(ctx context.Context, n *Note) error {
	doc, err := json.Marshal(noteDoc{
		UserID:    n.UserID.String(),
		Title:     n.Title,
		Slug:      n.Slug,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	})
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: n.ID.String(),
		Body:       strings.NewReader(string(doc)),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index note: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index note: %s", res.String())
	}
	return nil
}

func (s *SearchIndex) Remove(ctx context.Context, noteID uuid.UUID) error {
	req := opensearchapi.DeleteRequest{
		Index:      s.index,
		DocumentID: noteID.String(),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("remove note from index: %w", err)
	}
	defer res.Body.Close()
	// 404 means the note was never indexed, which is fine.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove note from index: %s", res.String())
	}
	return nil
}

func (s *SearchIndex) Search(ctx context.Context, userID uuid.UUID, query string) ([]Note, error) {
	body, err := json.Marshal(map[string]any{
		"size": searchResultLimit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"user_id": userID.String()}},
				},
				"must": []map[string]any{
					{"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"title^2", "content"},
					}},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search notes: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Source noteDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]Note, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Note{
			ID:        id,
			UserID:    userID,
			Title:     hit.Source.Title,
			Slug:      hit.Source.Slug,
			Content:   hit.Source.Content,
			CreatedAt: hit.Source.CreatedAt,
			UpdatedAt: hit.Source.UpdatedAt,
		})
	}
	return out, nil
}
