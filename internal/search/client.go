// Package search indexes content and user names in Elasticsearch and
// resolves full-text queries to ids.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxHits bounds how many ids one query resolves before pagination.
const maxHits = 500

// Client wraps the Elasticsearch client. Content index names are content
// collection names.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to url and verifies the connection.
func NewClient(url string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()

	return &Client{es: es}, nil
}

// NewClientWith wraps an existing Elasticsearch client.
func NewClientWith(es *elasticsearch.Client) *Client {
	return &Client{es: es}
}

// UsersIndex holds account names for people search.
const UsersIndex = "users"

// IndexContent writes the searchable fields of item to index.
func (c *Client) IndexContent(ctx context.Context, index string, item *models.ContentItem) error {
	return c.put(ctx, index, item.ID.Hex(), document(item), "content")
}

// IndexUser writes the name of user to UsersIndex.
func (c *Client) IndexUser(ctx context.Context, user *models.User) error {
	return c.put(ctx, UsersIndex, user.ID.Hex(), map[string]interface{}{"name": user.Name}, "user")
}

func (c *Client) put(ctx context.Context, index, id string, doc map[string]interface{}, kind string) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", kind, err)
	}

	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", kind, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("indexing "+kind, res.Status(), res.Body)
	}
	return nil
}

// SearchIDs runs a multi_match query over fields and returns the distinct
// matching content ids in relevance order.
func (c *Client) SearchIDs(ctx context.Context, index string, fields []string, query string) ([]primitive.ObjectID, error) {
	return c.searchIDs(ctx, index, map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":    query,
			"fields":   fields,
			"analyzer": "standard",
		},
	})
}

// SearchUserIDs matches query against user names.
func (c *Client) SearchUserIDs(ctx context.Context, query string) ([]primitive.ObjectID, error) {
	return c.searchIDs(ctx, UsersIndex, map[string]interface{}{
		"match": map[string]interface{}{
			"name": map[string]interface{}{"query": query, "analyzer": "standard"},
		},
	})
}

func (c *Client) searchIDs(ctx context.Context, index string, query map[string]interface{}) ([]primitive.ObjectID, error) {
	body, err := json.Marshal(map[string]interface{}{
		"size":    maxHits,
		"_source": false,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("searching "+index, res.Status(), res.Body)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]string, 0, len(searchResp.Hits.Hits))
	for _, h := range searchResp.Hits.Hits {
		hits = append(hits, h.ID)
	}
	return uniqueIDs(hits), nil
}
