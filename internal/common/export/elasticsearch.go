package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchSink indexes analysis results, one document per run.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchSink(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchSink {
	return &ElasticsearchSink{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "es-sink", "index": index}),
	}
}

type document struct {
	*models.AnalysisResult
	ItemCount int `json:"item_count"`
}

// Index stores result under its run ID.
func (s *ElasticsearchSink) Index(ctx context.Context, result *models.AnalysisResult) error {
	count := 0
	for _, items := range result.Meals {
		count += len(items)
	}
	body, err := json.Marshal(document{AnalysisResult: result, ItemCount: count})
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(result.RunID),
	)
	if err != nil {
		return fmt.Errorf("index analysis: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index analysis failed: %s", res.String())
	}

	s.logger.Debug("analysis indexed", map[string]interface{}{"runId": result.RunID, "items": count})
	return nil
}
