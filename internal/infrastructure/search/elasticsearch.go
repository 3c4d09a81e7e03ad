// Package search keeps an Elasticsearch index of active products, fed by
// ProductChanged events, and answers storefront full-text queries from it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const indexMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "product_text": {"tokenizer": "standard", "filter": ["lowercase", "asciifolding"]}
      }
    }
  },
  "mappings": {
    "properties": {
      "name":        {"type": "text", "analyzer": "product_text"},
      "description": {"type": "text", "analyzer": "product_text"},
      "sku":         {"type": "keyword"},
      "slug":        {"type": "keyword"},
      "price":       {"type": "scaled_float", "scaling_factor": 100},
      "stock":       {"type": "integer"},
      "category_id": {"type": "keyword"},
      "brand_id":    {"type": "keyword"}
    }
  }
}`

// NewClient connects to the cluster and checks it answers
func NewClient(ctx context.Context, cfg config.SearchConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res)
	}
	return client, nil
}

// document is what the index stores per product
type document struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"category_id,omitempty"`
	BrandID     string          `json:"brand_id,omitempty"`
}

// ProductIndex searches and maintains the product index
type ProductIndex struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewProductIndex creates a ProductIndex over the named index
func NewProductIndex(client *elasticsearch.Client, index string, logger *zap.Logger) *ProductIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductIndex{client: client, index: index, logger: logger}
}

// EnsureIndex creates the index with its mapping when it does not exist yet
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.client.Indices.Exists([]string{p.index}, p.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = p.client.Indices.Create(p.index,
		p.client.Indices.Create.WithContext(ctx),
		p.client.Indices.Create.WithBody(strings.NewReader(indexMapping)))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	p.logger.Info("Product search index created", zap.String("index", p.index))
	return nil
}

// Search returns ids of matching products, best match first
func (p *ProductIndex) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "sku^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"size":    limit,
		"_source": false,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			p.logger.Warn("Skipping search hit with foreign id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Name identifies the indexer for idempotency keys
func (p *ProductIndex) Name() string { return "search-product-indexer" }

// EventTypes returns the catalog events the indexer follows
func (p *ProductIndex) EventTypes() []string {
	return []string{catalog.EventTypeProductChanged}
}

// Handle indexes active products and removes deleted or hidden ones
func (p *ProductIndex) Handle(ctx context.Context, ev shared.DomainEvent) error {
	changed, ok := ev.(*catalog.ProductChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}
	id := changed.AggregateID().String()
	if changed.Change == catalog.ProductChangeDeleted || !changed.IsActive {
		return p.remove(ctx, id)
	}

	raw, err := json.Marshal(document{
		Name:        changed.Name,
		Description: changed.Description,
		SKU:         changed.SKU,
		Slug:        changed.Slug,
		Price:       changed.Price,
		Stock:       changed.Stock,
		CategoryID:  changed.CategoryID,
		BrandID:     changed.BrandID,
	})
	if err != nil {
		return err
	}
	res, err := p.client.Index(p.index, bytes.NewReader(raw),
		p.client.Index.WithContext(ctx),
		p.client.Index.WithDocumentID(id))
	if err != nil {
		return fmt.Errorf("index product %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product "+id, res)
	}
	return nil
}

func (p *ProductIndex) remove(ctx context.Context, id string) error {
	res, err := p.client.Delete(p.index, id, p.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete product "+id, res)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
