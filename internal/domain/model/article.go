package model

import (
	"strconv"
	"time"
)

// Article is a blog post backed by a GitHub issue.
type Article struct {
	Number       int
	Title        string
	Author       string
	HTMLURL      string
	BodyHTML     TrustedHTML
	CommentCount int
	CreatedAt    time.Time
}

// FileName is the page an article is published under, relative to the site root.
func (a Article) FileName() string {
	return strconv.Itoa(a.Number) + ".html"
}
