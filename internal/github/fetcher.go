package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/portfolio-buddy/internal/document"
)

// Source loads a single file from a GitHub repository. It implements document.Source.
type Source struct {
	client *Client
	owner  string
	repo   string
	path   string
	ref    string // Branch, tag or SHA; empty means the default branch
}

// NewSource creates a source for repo ("owner/name") and a file path within it.
func NewSource(client *Client, repo, path, ref string) (*Source, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", repo)
	}
	if path == "" {
		return nil, fmt.Errorf("document path is required")
	}
	return &Source{
		client: client,
		owner:  owner,
		repo:   name,
		path:   strings.TrimPrefix(path, "/"),
		ref:    ref,
	}, nil
}

// Load fetches the document pinned to the latest commit that touched it.
func (s *Source) Load(ctx context.Context) (*document.Document, error) {
	sha, err := s.LatestCommitSHA(ctx)
	if err != nil {
		return nil, err
	}

	fileContent, dirContents, _, err := s.client.Repositories.GetContents(
		ctx,
		s.owner,
		s.repo,
		s.path,
		&github.RepositoryContentGetOptions{Ref: sha},
	)
	if err != nil {
		return nil, s.wrap(err)
	}
	if fileContent == nil || dirContents != nil {
		return nil, fmt.Errorf("%w: %s is not a file", document.ErrUnreadable, s.display())
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", document.ErrUnreadable, s.display(), err)
	}

	return document.New(
		fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", s.owner, s.repo, sha, s.path),
		content,
	)
}

// LatestCommitSHA retrieves the SHA of the most recent commit affecting the document.
func (s *Source) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := s.client.Repositories.ListCommits(
		ctx,
		s.owner,
		s.repo,
		&github.CommitsListOptions{
			SHA:  s.ref,
			Path: s.path,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", s.wrap(err)
	}

	if len(commits) == 0 || commits[0].GetSHA() == "" {
		return "", fmt.Errorf("%w: no commits found for %s", document.ErrNotFound, s.display())
	}
	return commits[0].GetSHA(), nil
}

func (s *Source) display() string {
	ref := s.ref
	if ref == "" {
		ref = "HEAD"
	}
	return fmt.Sprintf("%s/%s/%s@%s", s.owner, s.repo, s.path, ref)
}

// wrap maps API failures onto the document package's errors.
func (s *Source) wrap(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", document.ErrNotFound, s.display())
	}
	return fmt.Errorf("%w: %s: %v", document.ErrUnreadable, s.display(), err)
}
