// Package types defines core domain types used throughout the application.
package types

import "fmt"

// RetrievalOptions carries the client-supplied retrieval options. Fields whose
// documented default is not the zero value are pointers so an omitted field is
// distinguishable from an explicit false or zero.
type RetrievalOptions struct {
	Format             string `json:"format,omitempty"`
	OutputTemplate     string `json:"outtmpl,omitempty"`
	NoPlaylist         *bool  `json:"noplaylist,omitempty"`
	NoCheckCertificate *bool  `json:"nocheckcertificate,omitempty"`
	Retries            *int   `json:"retries,omitempty"`
	ExtractorRetries   *int   `json:"extractor_retries,omitempty"`
	Verbose            bool   `json:"verbose,omitempty"`
	Cookies            string `json:"cookies,omitempty"`
}

// ResolvedOptions is a RetrievalOptions with every default applied. It is the
// only form the extraction gateway consumes.
type ResolvedOptions struct {
	Format             string
	OutputTemplate     string
	NoPlaylist         bool
	NoCheckCertificate bool
	Retries            int
	ExtractorRetries   int
	Verbose            bool
	Cookies            string
}

// Defaults supplies the server-side default values applied during Resolve.
type Defaults struct {
	Format         string
	OutputTemplate string
	Retries        int
}

// Resolve merges o with the supplied defaults and validates the result.
// A nil receiver resolves to pure defaults.
func (o *RetrievalOptions) Resolve(d Defaults) (ResolvedOptions, error) {
	resolved := ResolvedOptions{
		Format:             d.Format,
		OutputTemplate:     d.OutputTemplate,
		NoPlaylist:         true,
		NoCheckCertificate: true,
		Retries:            d.Retries,
		ExtractorRetries:   d.Retries,
	}
	if o == nil {
		return resolved, nil
	}

	if o.Format != "" {
		resolved.Format = o.Format
	}
	if o.OutputTemplate != "" {
		resolved.OutputTemplate = o.OutputTemplate
	}
	if o.NoPlaylist != nil {
		resolved.NoPlaylist = *o.NoPlaylist
	}
	if o.NoCheckCertificate != nil {
		resolved.NoCheckCertificate = *o.NoCheckCertificate
	}
	if o.Retries != nil {
		resolved.Retries = *o.Retries
	}
	if o.ExtractorRetries != nil {
		resolved.ExtractorRetries = *o.ExtractorRetries
	}
	resolved.Verbose = o.Verbose
	resolved.Cookies = o.Cookies

	if resolved.Retries < 0 {
		return ResolvedOptions{}, fmt.Errorf("retries must be non-negative, got %d", resolved.Retries)
	}
	if resolved.ExtractorRetries < 0 {
		return ResolvedOptions{}, fmt.Errorf("extractor_retries must be non-negative, got %d", resolved.ExtractorRetries)
	}
	if resolved.Format == "" {
		return ResolvedOptions{}, fmt.Errorf("format must not be empty")
	}
	return resolved, nil
}

// RetrievalRequest is the body accepted by the info and download routes.
type RetrievalRequest struct {
	URL     string            `json:"url"`
	Options *RetrievalOptions `json:"options,omitempty"`
}

// MetadataResult is the outcome of a metadata-only retrieval. Info holds the
// raw info mapping produced by the extractor, untouched.
type MetadataResult struct {
	Message string         `json:"message"`
	Info    map[string]any `json:"info"`
}

// DownloadResult is the outcome of a download retrieval.
type DownloadResult struct {
	Message   string `json:"message"`
	Title     string `json:"title"`
	Filepath  string `json:"filepath"`
	Extractor string `json:"extractor"`
}
