package model

import "fmt"

// WidgetConfig describes a single comments widget: which issue to read and how
// many comments to request. It is derived once from a container's attributes.
type WidgetConfig struct {
	RepositoryOwner string
	RepositoryName  string
	IssueNumber     int
	MaxComments     int
}

// Validate reports the first invalid field as a *ConfigError.
func (c WidgetConfig) Validate() error {
	if c.RepositoryOwner == "" {
		return &ConfigError{Attribute: "repo-owner", Reason: "is required"}
	}
	if c.RepositoryName == "" {
		return &ConfigError{Attribute: "repo-name", Reason: "is required"}
	}
	if c.IssueNumber <= 0 {
		return &ConfigError{Attribute: "issue-number", Value: fmt.Sprint(c.IssueNumber), Reason: "must be a positive integer"}
	}
	if c.MaxComments <= 0 {
		return &ConfigError{Attribute: "max-comments", Value: fmt.Sprint(c.MaxComments), Reason: "must be a positive integer"}
	}
	return nil
}

// RepoFullName returns the "owner/repo" form used in logs.
func (c WidgetConfig) RepoFullName() string {
	return c.RepositoryOwner + "/" + c.RepositoryName
}

// IssueURL returns the issue's page on github.com.
func (c WidgetConfig) IssueURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/issues/%d", c.RepositoryOwner, c.RepositoryName, c.IssueNumber)
}

// CommentComposerURL links to the comment form at the bottom of the issue page.
func (c WidgetConfig) CommentComposerURL() string {
	return c.IssueURL() + "#comment-composer-heading"
}
