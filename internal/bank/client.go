package bank

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
)

const (
	QuestionsPath = "/questions"
	ResourcesPath = "/resources"

	userAgent = "spigell/interviewer"
	// Max value for search per page.
	perPage = 50
)

// Client talks to a remote question bank exposing paged JSON search endpoints.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

var (
	_ QuestionSearcher = (*Client)(nil)
	_ ResourceSearcher = (*Client)(nil)
)

func NewClient(apiURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) SearchQuestions(ctx context.Context, q Query) ([]interview.Question, error) {
	params := url.Values{}
	setParam(params, "field", q.Field)
	setParam(params, "position", q.Position)
	setParam(params, "difficulty", string(q.Difficulty))
	setParam(params, "type", string(q.Type))
	params.Set("per_page", strconv.Itoa(pageSize(q.Count)))

	items, err := c.GetItems(ctx, c.APIURL+QuestionsPath, params, q.Count)
	if err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}

	var questions []interview.Question
	if err := decodeItems(items, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	return truncate(questions, q.Count), nil
}

func (c *Client) SearchResources(ctx context.Context, dimension interview.Dimension, count int) ([]interview.LearningResource, error) {
	params := url.Values{}
	setParam(params, "dimension", string(dimension))
	params.Set("per_page", strconv.Itoa(pageSize(count)))

	items, err := c.GetItems(ctx, c.APIURL+ResourcesPath, params, count)
	if err != nil {
		return nil, fmt.Errorf("search resources: %w", err)
	}

	var resources []interview.LearningResource
	if err := decodeItems(items, &resources); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}

	for i := range resources {
		if resources[i].Dimension == "" {
			resources[i].Dimension = dimension
		}
	}

	return truncate(resources, count), nil
}

func decodeItems(items []Item, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(items)
}

func setParam(q url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		q.Set(key, value)
	}
}

func pageSize(count int) int {
	if count <= 0 || count > perPage {
		return perPage
	}
	return count
}

func truncate[T any](values []T, count int) []T {
	if count > 0 && len(values) > count {
		return values[:count]
	}
	return values
}
