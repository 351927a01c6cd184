package dto

// NoteMetadata represents metadata about a note in the remote vault
type NoteMetadata struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size,omitempty"`
	Modified string `json:"modified,omitempty"`
	IsDir    bool   `json:"is_dir"`
}

// SearchMatch is a single match inside one file. MatchText and MatchOffset
// are only populated by the cache-scan path; the remote search API does not
// expose exact offsets, so API-path matches carry the context snippet alone.
type SearchMatch struct {
	Context     string `json:"context"`
	MatchText   string `json:"match_text,omitempty"`
	MatchOffset *int   `json:"match_offset,omitempty"`
}

// FileSearchResult groups the matches found in one vault file. MatchCount is
// the total number of matches found before the per-file cap truncated the
// Matches list.
type FileSearchResult struct {
	Path       string        `json:"path"`
	Name       string        `json:"name"`
	Created    string        `json:"created,omitempty"`
	Modified   string        `json:"modified"`
	MTime      int64         `json:"mtime"`
	MatchCount int           `json:"match_count"`
	Matches    []SearchMatch `json:"matches"`
}

// GlobalSearchResponse is the full reply for a vault-wide search request.
type GlobalSearchResponse struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	Results           []FileSearchResult `json:"results"`
	TotalFilesFound   int                `json:"total_files_found"`
	TotalMatchesFound int                `json:"total_matches_found"`
	Page              int                `json:"page"`
	PageSize          int                `json:"page_size"`
	TotalPages        int                `json:"total_pages"`
	AlsoFoundInFiles  []string           `json:"also_found_in_files,omitempty"`
}

// TagCount reports how many notes carry a given tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// FrontmatterResult carries the parsed frontmatter block of a single note.
type FrontmatterResult struct {
	Path           string            `json:"path"`
	Fields         map[string]string `json:"fields"`
	HasFrontmatter bool              `json:"has_frontmatter"`
}
