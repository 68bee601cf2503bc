package domain

import "strings"

// Source is a repository the agent can work against. Immutable from
// the client's perspective; refreshes replace the full set.
type Source struct {
	Name       string      `json:"name"`
	ID         string      `json:"id,omitempty"`
	GitHubRepo *GitHubRepo `json:"githubRepo,omitempty"`
}

type GitHubRepo struct {
	Owner         string `json:"owner,omitempty"`
	Repo          string `json:"repo,omitempty"`
	IsPrivate     bool   `json:"isPrivate,omitempty"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
}

func (s Source) DisplayName() string {
	if s.GitHubRepo != nil && s.GitHubRepo.Repo != "" {
		if s.GitHubRepo.Owner != "" {
			return s.GitHubRepo.Owner + "/" + s.GitHubRepo.Repo
		}
		return s.GitHubRepo.Repo
	}
	return strings.TrimPrefix(s.Name, "sources/")
}
