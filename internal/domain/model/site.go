package model

// Site describes the static blog generated from a repository's issues.
type Site struct {
	Title       string
	Owner       string
	Repo        string
	Label       string // Issues carrying this label are published.
	MaxComments int    // Page size for each article's comments widget.
}

// WidgetFor returns the comments widget configuration for an article.
func (s Site) WidgetFor(a Article) WidgetConfig {
	return WidgetConfig{
		RepositoryOwner: s.Owner,
		RepositoryName:  s.Repo,
		IssueNumber:     a.Number,
		MaxComments:     s.MaxComments,
	}
}
