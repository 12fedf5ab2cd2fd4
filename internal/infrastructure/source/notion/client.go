package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

const (
	defaultBaseURL  = "https://api.notion.com"
	notionVersion   = "2022-06-28"
	defaultPageSize = 100
)

// Client reads the recipe page's block children through the Notion REST API
// and flattens them into the ordered segment sequence the parser consumes.
type Client struct {
	baseURL    string
	token      string
	pageID     string
	pageSize   int
	httpClient *http.Client
}

func New(baseURL, token, pageID string, pageSize int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		pageID:     pageID,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type richText struct {
	Type string `json:"type"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	PlainText string `json:"plain_text"`
}

type blockContent struct {
	RichText []richText `json:"rich_text"`
}

type block struct {
	Type             string        `json:"type"`
	Paragraph        *blockContent `json:"paragraph"`
	Quote            *blockContent `json:"quote"`
	Heading1         *blockContent `json:"heading_1"`
	Heading2         *blockContent `json:"heading_2"`
	Heading3         *blockContent `json:"heading_3"`
	BulletedListItem *blockContent `json:"bulleted_list_item"`
	NumberedListItem *blockContent `json:"numbered_list_item"`
}

type childrenPage struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// FetchSegments pages through all block children in document order. Block
// types without a text mapping are skipped, not errored on.
func (c *Client) FetchSegments(ctx context.Context) ([]domain.RawSegment, error) {
	segments := []domain.RawSegment{}
	cursor := ""
	for {
		page, err := c.fetchChildren(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Results {
			if segment, ok := blockToSegment(b); ok {
				segments = append(segments, segment)
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return segments, nil
}

func (c *Client) fetchChildren(ctx context.Context, cursor string) (*childrenPage, error) {
	query := url.Values{}
	query.Set("page_size", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/v1/blocks/%s/children?%s", c.baseURL, url.PathEscape(c.pageID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create children request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion children request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("notion children status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if isRetryableHTTPStatus(resp.StatusCode) {
			return nil, domain.WrapError(domain.ErrTemporary, "notion fetch", err)
		}
		return nil, err
	}

	var page childrenPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode children response: %w", err)
	}
	return &page, nil
}

func blockToSegment(b block) (domain.RawSegment, bool) {
	switch b.Type {
	case "divider":
		return domain.RawSegment{Kind: domain.SegmentDivider}, true
	case "paragraph":
		return textSegment(domain.SegmentParagraph, b.Paragraph)
	case "quote":
		return textSegment(domain.SegmentParagraph, b.Quote)
	case "heading_1":
		return textSegment(domain.SegmentParagraph, b.Heading1)
	case "heading_2":
		return textSegment(domain.SegmentParagraph, b.Heading2)
	case "heading_3":
		return textSegment(domain.SegmentParagraph, b.Heading3)
	case "bulleted_list_item":
		return textSegment(domain.SegmentBullet, b.BulletedListItem)
	case "numbered_list_item":
		return textSegment(domain.SegmentBullet, b.NumberedListItem)
	default:
		return domain.RawSegment{}, false
	}
}

func textSegment(kind domain.SegmentKind, content *blockContent) (domain.RawSegment, bool) {
	if content == nil {
		return domain.RawSegment{}, false
	}
	text := flattenRichText(content.RichText)
	if text == "" {
		return domain.RawSegment{}, false
	}
	return domain.RawSegment{Kind: kind, Text: text}, true
}

func flattenRichText(parts []richText) string {
	var sb strings.Builder
	for _, part := range parts {
		if part.Type == "text" {
			sb.WriteString(part.Text.Content)
			continue
		}
		sb.WriteString(part.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
