package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
)

// ElasticConfig holds the connection settings for the Elasticsearch index.
type ElasticConfig struct {
	Addresses []string
	Index     string
}

// DefaultIndex is the index name for book documents.
const DefaultIndex = "books"

// bookMapping declares the field types for the books index. Created once
// by EnsureIndex; Elasticsearch rejects incompatible changes afterwards.
const bookMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "integer"},
      "name": {"type": "text", "analyzer": "standard"},
      "summary": {"type": "text", "analyzer": "standard"},
      "author_name": {"type": "text", "analyzer": "standard"},
      "published_at": {"type": "date"},
      "total_sales": {"type": "integer"}
    }
  }
}`

// ElasticIndex implements IndexClient against an Elasticsearch cluster.
type ElasticIndex struct {
	es    *elasticsearch.Client
	index string
}

// NewElasticIndex constructs the Elasticsearch-backed index client. It does
// not probe connectivity; the search Service owns availability.
func NewElasticIndex(cfg ElasticConfig) (*ElasticIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Addresses})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticIndex{es: es, index: index}, nil
}

// Ping implements IndexClient.
func (e *ElasticIndex) Ping(ctx context.Context) error {
	res, err := e.es.Ping(e.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: %s", res.Status())
	}
	return nil
}

// Index implements IndexClient: an index call with an explicit document id
// is an upsert.
func (e *ElasticIndex) Index(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %d: %w", doc.ID, err)
	}
	res, err := e.es.Index(e.index, bytes.NewReader(payload),
		e.es.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %d: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document %d: %s", doc.ID, res.Status())
	}
	return nil
}

// Delete implements IndexClient. A 404 means the document was never
// indexed, which is the outcome deletion wanted anyway.
func (e *ElasticIndex) Delete(ctx context.Context, id int64) error {
	res, err := e.es.Delete(e.index, strconv.FormatInt(id, 10),
		e.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document %d: %s", id, res.Status())
	}
	return nil
}

// searchRequest is the query body for Search: a fuzzy multi_match with the
// book name weighted above summary and author name, returning only ids.
type searchRequest struct {
	Query struct {
		MultiMatch struct {
			Query     string   `json:"query"`
			Fields    []string `json:"fields"`
			Type      string   `json:"type"`
			Fuzziness string   `json:"fuzziness"`
		} `json:"multi_match"`
	} `json:"query"`
	Size   int      `json:"size"`
	Source []string `json:"_source"`
}

// Search implements IndexClient, returning ids in relevance order.
func (e *ElasticIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	var req searchRequest
	req.Query.MultiMatch.Query = query
	req.Query.MultiMatch.Fields = []string{"name^2", "summary", "author_name"}
	req.Query.MultiMatch.Type = "best_fields"
	req.Query.MultiMatch.Fuzziness = "AUTO"
	req.Size = limit
	req.Source = []string{"id"}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID int64 `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}

// EnsureIndex implements IndexClient: creates the books index with its
// field mapping unless it already exists.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index},
		e.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index %q: %w", e.index, err)
	}
	exists := res.StatusCode == http.StatusOK
	res.Body.Close()
	if exists {
		return nil
	}

	created, err := e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithBody(bytes.NewReader([]byte(bookMapping))),
		e.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %q: %w", e.index, err)
	}
	defer created.Body.Close()
	if created.IsError() {
		return fmt.Errorf("create index %q: %s", e.index, created.Status())
	}
	return nil
}

// DropIndex implements IndexClient. A 404 means the index never existed.
func (e *ElasticIndex) DropIndex(ctx context.Context) error {
	res, err := e.es.Indices.Delete([]string{e.index},
		e.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("drop index %q: %w", e.index, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("drop index %q: %s", e.index, res.Status())
	}
	return nil
}

var _ IndexClient = (*ElasticIndex)(nil)
