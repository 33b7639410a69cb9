package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/semmidev/repovault/internal/domain"
)

type Client struct {
	apiURL  string
	org     string
	token   string
	perPage int
	client  *http.Client
}

func NewClient(apiURL, org, token string, perPage int) *Client {
	return &Client{
		apiURL:  apiURL,
		org:     org,
		token:   token,
		perPage: perPage,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type repoPayload struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	SSHURL        string `json:"ssh_url"`
	DefaultBranch string `json:"default_branch"`
	Archived      bool   `json:"archived"`
}

// ListRepos returns every repository of the organization, sorted by name.
// The API paginates; pages are fetched until an empty one comes back.
func (c *Client) ListRepos(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository

	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, r := range batch {
			repos = append(repos, domain.Repository{
				Name:          r.Name,
				FullName:      r.FullName,
				SSHURL:        r.SSHURL,
				DefaultBranch: r.DefaultBranch,
				Archived:      r.Archived,
			})
		}
	}

	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Name < repos[j].Name
	})

	return repos, nil
}

func (c *Client) listPage(ctx context.Context, page int) ([]repoPayload, error) {
	url := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d",
		c.apiURL, c.org, c.perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build repos request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list repos for org %s: %w", c.org, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to list repos for org %s: status=%d, body=%s",
			c.org, resp.StatusCode, string(body))
	}

	var batch []repoPayload
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode repos page %d: %w", page, err)
	}

	return batch, nil
}
